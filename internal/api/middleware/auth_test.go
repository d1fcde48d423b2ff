package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/api/middleware"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/auth"
)

// tokenTable maps tokens to users; any other token fails with err.
type tokenTable struct {
	users map[string]string
	err   error
}

func (v tokenTable) Authenticate(token string) (string, error) {
	if id, ok := v.users[token]; ok {
		return id, nil
	}
	return "", v.err
}

func serveAuth(t *testing.T, v middleware.TokenValidator, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var userID string
	h := middleware.Auth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/me/profile", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, userID
}

func TestAuth_ValidToken(t *testing.T) {
	v := tokenTable{users: map[string]string{"tok-ayesha": "usr_ayesha"}}

	for _, header := range []string{"Bearer tok-ayesha", "bearer tok-ayesha", "BEARER  tok-ayesha "} {
		rec, userID := serveAuth(t, v, header)
		assert.Equal(t, http.StatusNoContent, rec.Code, header)
		assert.Equal(t, "usr_ayesha", userID, header)
	}
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		err        error
		wantDetail string
	}{
		{"missing header", "", nil, "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", nil, `authorization header must be "Bearer <token>"`},
		{"no token", "Bearer ", nil, "missing bearer token"},
		{"scheme only", "Bearer", nil, `authorization header must be "Bearer <token>"`},
		{"expired", "Bearer old", auth.ErrAccessTokenExpired, "access token has expired"},
		{"invalid", "Bearer forged", auth.ErrInvalidAccessToken, "invalid access token"},
		{"other failure", "Bearer x", errors.New("boom"), "authentication failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, userID := serveAuth(t, tokenTable{err: tt.err}, tt.header)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, userID)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var p models.Problem
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
			assert.Equal(t, models.ProblemTypeUnauthorized, p.Type)
			assert.Equal(t, tt.wantDetail, p.Detail)
			assert.Equal(t, "/v1/me/profile", p.Instance)
		})
	}
}

func TestUserIDContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))

	ctx := middleware.WithUserID(req.Context(), "usr_bilal")
	assert.Equal(t, "usr_bilal", middleware.GetUserID(ctx))
}
