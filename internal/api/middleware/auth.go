package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/auth"
)

type userIDKey struct{}

type userSlotKey struct{}

// TokenValidator resolves a bearer token to the user ID it was issued for.
// *auth.JWTService satisfies it.
type TokenValidator interface {
	Authenticate(token string) (string, error)
}

var errMalformedHeader = errors.New("authorization header must be \"Bearer <token>\"")

// Auth rejects requests without a valid bearer token and stores the token's
// user ID on the context for handlers under /v1/me.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeProblem(w, r, models.KindUnauthorized, err.Error())
				return
			}

			userID, err := validator.Authenticate(token)
			if err != nil {
				writeProblem(w, r, models.KindUnauthorized, authFailureDetail(err))
				return
			}

			if slot, ok := r.Context().Value(userSlotKey{}).(*string); ok {
				*slot = userID
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMalformedHeader
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func authFailureDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return "access token has expired"
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return "invalid access token"
	default:
		return "authentication failed"
	}
}

// WithUserID returns ctx carrying an authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the authenticated user ID, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func withUserSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, userSlotKey{}, slot)
}
