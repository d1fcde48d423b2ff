// Package auth issues and validates the bearer tokens that identify API users.
//
// Access tokens are short-lived HS256 JWTs whose subject is the user ID.
// Accounts live with the identity provider; the API only needs a stable
// user ID per request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultAccessTokenExpiry applies when JWTConfig leaves the expiry unset.
const DefaultAccessTokenExpiry = 30 * time.Minute

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingUserID      = errors.New("user id is required")
)

// JWTConfig configures a JWTService.
type JWTConfig struct {
	SigningKey        string
	Issuer            string
	Audience          string
	AccessTokenExpiry time.Duration
	Clock             clockwork.Clock
}

// AccessToken is a signed token and the instant it stops being accepted.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// JWTService signs and verifies access tokens with a shared secret.
type JWTService struct {
	key    []byte
	expiry time.Duration
	clock  clockwork.Clock
	parser *jwt.Parser

	issuer   string
	audience string
}

// NewJWTService creates a JWTService.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.AccessTokenExpiry <= 0 {
		cfg.AccessTokenExpiry = DefaultAccessTokenExpiry
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &JWTService{
		key:      []byte(cfg.SigningKey),
		expiry:   cfg.AccessTokenExpiry,
		clock:    cfg.Clock,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(cfg.Clock.Now),
		),
	}
}

// Issue signs an access token for userID.
func (s *JWTService) Issue(userID string) (AccessToken, error) {
	if userID == "" {
		return AccessToken{}, ErrMissingUserID
	}

	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies signature, issuer, audience and lifetime, returning the
// token's claims. Expired tokens yield ErrAccessTokenExpired; every other
// failure wraps ErrInvalidAccessToken.
func (s *JWTService) Parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: no subject", ErrInvalidAccessToken)
	}
	return claims, nil
}

// Authenticate returns the user ID a valid token was issued for.
func (s *JWTService) Authenticate(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
