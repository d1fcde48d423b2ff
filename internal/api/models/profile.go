package models

// Profile is the user's health profile with its computed risk.
type Profile struct {
	RiskInput
	Risk           RiskAssessment `json:"risk"`
	AlertThreshold *int           `json:"alertThreshold,omitempty"`
	CreatedAt      Timestamp      `json:"createdAt"`
	UpdatedAt      Timestamp      `json:"updatedAt"`
}

// ProfileInput is the request body for PUT /v1/me/profile.
type ProfileInput = RiskInput
