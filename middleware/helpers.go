package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/devcon26/registration-api/models"
)

type contextKey string

const (
	claimsContextKey      contextKey = "claims"
	userContextKey        contextKey = "user"
	participantContextKey contextKey = "participant"
)

// Имя JWT claim с id пользователя
const jwtClaimUserID = "user_id"

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID int
	switch v := userIDClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, v)
		}
		userID = int(v)
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %q", jwtClaimUserID, v)
		}
		userID = id
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimUserID, userIDClaim)
	}

	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	if user, ok := UserFromContext(ctx); ok {
		return user.ID, nil
	}
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context or invalid type")
	}
	return userIDFromClaims(claims)
}

// UserFromContext возвращает пользователя, загруженного Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// ParticipantFromContext возвращает профиль, загруженный RequireParticipant.
func ParticipantFromContext(ctx context.Context) (*models.Participant, bool) {
	p, ok := ctx.Value(participantContextKey).(*models.Participant)
	return p, ok && p != nil
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func WithParticipant(ctx context.Context, p *models.Participant) context.Context {
	return context.WithValue(ctx, participantContextKey, p)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
