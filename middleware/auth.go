package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/devcon26/registration-api/models"
)

// UserLoader — repositories.UserRepository удовлетворяет этому интерфейсу.
type UserLoader interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// ParticipantLoader возвращает профиль участника по id пользователя.
type ParticipantLoader interface {
	GetByUserID(ctx context.Context, userID int) (*models.Participant, error)
}

// AuthConfig. NoUser: ошибка UserLoader для несуществующего пользователя,
// NoProfile: ошибка ParticipantLoader, означающая "профиля нет".
// Любая другая ошибка загрузчиков отдаётся как 500.
type AuthConfig struct {
	Secret    string
	NoUser    error
	NoProfile error
}

type Auth struct {
	secret       []byte
	users        UserLoader
	participants ParticipantLoader
	noUser       error
	noProfile    error
	logger       *slog.Logger
}

func NewAuth(cfg AuthConfig, users UserLoader, participants ParticipantLoader, logger *slog.Logger) *Auth {
	return &Auth{
		secret:       []byte(cfg.Secret),
		users:        users,
		participants: participants,
		noUser:       cfg.NoUser,
		noProfile:    cfg.NoProfile,
		logger:       logger,
	}
}

const internalErrorMessage = "the server encountered a problem and could not process your request"

// Authorize — единственная проверка прав: роль пользователя входит в allowed.
func Authorize(user *models.User, allowed ...models.UserRole) bool {
	if user == nil || !user.Role.Valid() {
		return false
	}
	for _, role := range allowed {
		if user.Role == role {
			return true
		}
	}
	return false
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// браузерный WebSocket не умеет ставить заголовки
	return r.URL.Query().Get("access_token")
}

func (a *Auth) parseToken(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticate проверяет JWT и загружает пользователя из БД. Роль берётся
// из БД, а не из токена, чтобы смена роли действовала сразу.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := a.parseToken(raw)
		if err != nil {
			a.logger.DebugContext(r.Context(), "Token rejected", slog.Any("error", err))
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		userID, err := userIDFromClaims(claims)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		user, err := a.users.GetByID(r.Context(), userID)
		if err != nil {
			if a.noUser != nil && errors.Is(err, a.noUser) {
				a.logger.InfoContext(r.Context(), "Token for unknown user", slog.Int("user_id", userID))
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			a.logger.ErrorContext(r.Context(), "Failed to load authenticated user", slog.Int("user_id", userID), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = WithUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !Authorize(user, roles...) {
				writeError(w, http.StatusForbidden, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireParticipant кладёт профиль участника в контекст; 403, если профиля нет.
func (a *Auth) RequireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		p, err := a.participants.GetByUserID(r.Context(), user.ID)
		if err != nil {
			if a.noProfile != nil && errors.Is(err, a.noProfile) {
				writeError(w, http.StatusForbidden, "Participant profile required")
				return
			}
			a.logger.ErrorContext(r.Context(), "Failed to load participant profile", slog.Int("user_id", user.ID), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, internalErrorMessage)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithParticipant(r.Context(), p)))
	})
}
