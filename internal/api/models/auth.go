package models

// DevTokenInput is the request body for POST /v1/auth/dev-token.
type DevTokenInput struct {
	UserID string `json:"userId"`
}

// TokenResponse carries a bearer access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   Timestamp `json:"expiresAt"`
}
