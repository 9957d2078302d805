package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/devcon26/registration-api/docs" // регистрирует swagger spec
	"github.com/devcon26/registration-api/handlers"
	"github.com/devcon26/registration-api/metrics"
	"github.com/devcon26/registration-api/middleware"
	"github.com/devcon26/registration-api/models"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	Participant *handlers.ParticipantHandler
	Ambassador  *handlers.AmbassadorHandler
	Admin       *handlers.AdminHandler
	AdminUser   *handlers.AdminUserHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

func SetupRoutes(router chi.Router, auth *middleware.Auth, h Handlers, opts Options) {
	allowCredentials := true
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			// браузеры не принимают credentials вместе с "*"
			allowCredentials = false
		}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(requestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(opts.Metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))

	router.Get("/", h.Health.Root)
	router.Get("/health", h.Health.Health)
	router.Handle("/metrics", opts.Metrics.Handler())
	router.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Route("/participants", func(r chi.Router) {
				r.Post("/register", h.Participant.Register)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(models.RoleParticipant))
					r.Use(auth.RequireParticipant)

					r.Get("/me", h.Participant.Me)
					r.Post("/payment/online", h.Participant.UploadOnlinePayment)
					r.Post("/payment/cash", h.Participant.DeclareCashPayment)
				})
			})

			r.Route("/ambassador", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAmbassador, models.RoleAdmin))

				r.Get("/search", h.Ambassador.Search)
				r.Post("/verify-cash", h.Ambassador.VerifyCash)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin))

				r.Get("/dashboard", h.Admin.Dashboard)
				r.Post("/verify-payment/{id}", h.Admin.VerifyPayment)
				r.Get("/export", h.Admin.Export)
				r.Get("/payments", h.Admin.ListPayments)
				r.Get("/payments/{id}/receipt", h.Admin.Receipt)
				r.Get("/users", h.AdminUser.ListUsers)
				r.Put("/users/{id}/role", h.AdminUser.UpdateUserRole)
				r.Get("/ws", h.WebSocket.ServeAdminFeed)
			})
		})
	})
}

// requestLogger пишет одну запись slog на запрос.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.InfoContext(r.Context(), "request completed",
					slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
