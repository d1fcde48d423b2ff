package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/user"
)

// ProfileHandler serves the caller's health profile.
type ProfileHandler struct {
	users  *user.Service
	logger zerolog.Logger
}

func NewProfileHandler(users *user.Service, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

// GetProfile handles GET /v1/me/profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	switch {
	case errors.Is(err, user.ErrProfileNotFound):
		response.NotFound(w, r, "profile not found")
	case err != nil:
		serverError(w, r, h.logger, err, "failed to load profile")
	default:
		response.JSON(w, r, http.StatusOK, toProfile(profile))
	}
}

// UpsertProfile handles PUT /v1/me/profile. The stored risk assessment is
// recomputed from the new answers.
func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input models.ProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}

	profile, err := h.users.UpsertProfile(r.Context(), userID, toProfileInput(input))
	var invalid *user.ValidationError
	switch {
	case errors.As(err, &invalid):
		response.Invalid(w, r, invalid.Errors...)
	case err != nil:
		serverError(w, r, h.logger, err, "failed to save profile")
	default:
		response.JSON(w, r, http.StatusOK, toProfile(profile))
	}
}
