package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/api/middleware"
	"github.com/cleanairpk/cleanair/internal/api/response"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into dst. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		detail := "invalid JSON body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail = "request body too large"
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}

// currentUser returns the authenticated user, or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return "", false
	}
	return userID, true
}

// serverError logs err against the request and writes an opaque 500.
func serverError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, msg string) {
	ctx := r.Context()
	event := log.Error().Err(err).Str("request_id", middleware.GetRequestID(ctx))
	if userID := middleware.GetUserID(ctx); userID != "" {
		event = event.Str("user_id", userID)
	}
	event.Msg(msg)
	response.InternalError(w, r, "internal server error")
}
