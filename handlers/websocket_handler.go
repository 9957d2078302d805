package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/devcon26/registration-api/live"
	"github.com/devcon26/registration-api/middleware"
)

type WebSocketHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler. allowedOrigins совпадает с CORS; "*" разрешает любой Origin.
func NewWebSocketHandler(hub *live.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	_, allowAll := allowed["*"]

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// ServeAdminFeed godoc
// @Summary Живая лента событий для администраторов
// @Tags admin
// @Description WebSocket: REGISTRATION_CREATED, PAYMENT_SUBMITTED, PAYMENT_VERIFIED, PAYMENT_REJECTED. Токен можно передать в access_token.
// @Param access_token query string false "JWT для браузерных клиентов"
// @Success 101 "Switching Protocols"
// @Security BearerAuth
// @Router /admin/ws [get]
func (h *WebSocketHandler) ServeAdminFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed", slog.Int("user_id", userID), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, live.AdminRoom)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.InfoContext(r.Context(), "Admin live feed client connected",
		slog.String("client_id", client.ID),
		slog.Int("user_id", userID),
	)
}
