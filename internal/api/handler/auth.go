package handler

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/auth"
)

// AuthHandler mints access tokens for local development. Production tokens
// come from the identity provider.
type AuthHandler struct {
	jwt    *auth.JWTService
	logger zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(jwt *auth.JWTService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{jwt: jwt, logger: logger}
}

// DevToken handles POST /v1/auth/dev-token. Only routed outside production.
func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var input models.DevTokenInput
	if !decodeJSON(w, r, &input) {
		return
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		response.Invalid(w, r, models.FieldError{Field: "userId", Message: "is required", Code: "required"})
		return
	}

	token, err := h.jwt.Issue(userID)
	if err != nil {
		serverError(w, r, h.logger, err, "failed to mint dev token")
		return
	}

	h.logger.Warn().Str("user_id", userID).Msg("issued development access token")
	response.JSON(w, r, http.StatusOK, models.TokenResponse{
		AccessToken: token.Value,
		TokenType:   "Bearer",
		ExpiresAt:   models.Timestamp(token.ExpiresAt),
	})
}
