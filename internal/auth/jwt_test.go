package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/auth"
)

var issuedAt = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, mutate ...func(*auth.JWTConfig)) (*auth.JWTService, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(issuedAt)
	cfg := auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.cleanair.pk",
		Audience:   "cleanair-api",
		Clock:      clock,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return auth.NewJWTService(cfg), clock
}

func TestJWTService_IssueAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)

	token, err := svc.Issue("usr_lahore")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)
	assert.True(t, token.ExpiresAt.Equal(issuedAt.Add(auth.DefaultAccessTokenExpiry)))

	claims, err := svc.Parse(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "usr_lahore", claims.Subject)
	assert.Equal(t, "https://api.cleanair.pk", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"cleanair-api"}, claims.Audience)
	assert.NotEmpty(t, claims.ID)

	userID, err := svc.Authenticate(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "usr_lahore", userID)
}

func TestJWTService_TokenIDsAreUnique(t *testing.T) {
	svc, _ := newService(t)

	a, err := svc.Issue("usr_1")
	require.NoError(t, err)
	b, err := svc.Issue("usr_1")
	require.NoError(t, err)

	ca, err := svc.Parse(a.Value)
	require.NoError(t, err)
	cb, err := svc.Parse(b.Value)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTService_RequiresUserID(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Issue("")
	assert.ErrorIs(t, err, auth.ErrMissingUserID)
}

func TestJWTService_Expiry(t *testing.T) {
	svc, clock := newService(t, func(c *auth.JWTConfig) { c.AccessTokenExpiry = 10 * time.Minute })

	token, err := svc.Issue("usr_karachi")
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	_, err = svc.Authenticate(token.Value)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Authenticate(token.Value)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_Rejects(t *testing.T) {
	issuer, _ := newService(t)
	token, err := issuer.Issue("usr_1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*auth.JWTConfig)
		token  string
	}{
		{"empty", nil, ""},
		{"malformed", nil, "not.a.jwt"},
		{"wrong key", func(c *auth.JWTConfig) { c.SigningKey = "another-key" }, token.Value},
		{"wrong issuer", func(c *auth.JWTConfig) { c.Issuer = "https://evil.example" }, token.Value},
		{"wrong audience", func(c *auth.JWTConfig) { c.Audience = "cleanair-admin" }, token.Value},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mutate []func(*auth.JWTConfig)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}
			svc, _ := newService(t, mutate...)

			_, err := svc.Authenticate(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc, _ := newService(t)
	claims := jwt.RegisteredClaims{
		Subject:   "usr_1",
		Issuer:    "https://api.cleanair.pk",
		Audience:  jwt.ClaimStrings{"cleanair-api"},
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Authenticate(unsigned)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RejectsMissingSubject(t *testing.T) {
	svc, _ := newService(t)
	claims := jwt.RegisteredClaims{
		Issuer:    "https://api.cleanair.pk",
		Audience:  jwt.ClaimStrings{"cleanair-api"},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-testing-only"))
	require.NoError(t, err)

	_, err = svc.Authenticate(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}
