// Package user stores each user's health profile and alert threshold.
//
// # PII Considerations
//
// Data Stored:
//   - UserID: opaque identifier taken from the access token subject
//   - Age, chronic condition and smoker flags, daily outdoor hours: used only
//     to compute the risk assessment shown back to the user
//   - AlertThreshold: AQI level above which the user is alerted
//
// Data NOT Stored:
//   - Name, email, credentials (owned by the identity provider)
//   - Location history
//
// The derived risk assessment is recomputed from the stored factors on every
// update and never edited directly.
package user

import (
	"time"

	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/risk"
)

// Profile is a user's health profile with its derived risk assessment.
type Profile struct {
	UserID string

	// Age is optional; nil contributes nothing to the risk score.
	Age                  *int
	HasChronicConditions bool
	IsSmoker             bool
	DailyOutdoorHours    int

	// Risk is derived from the fields above.
	Risk risk.Assessment

	// AlertThreshold is the AQI above which alerts are raised. nil disables evaluation.
	AlertThreshold *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RiskProfile returns the scoring input for this profile.
func (p *Profile) RiskProfile() risk.Profile {
	return risk.Profile{
		Age:                  p.Age,
		HasChronicConditions: p.HasChronicConditions,
		IsSmoker:             p.IsSmoker,
		DailyOutdoorHours:    p.DailyOutdoorHours,
	}
}

// ThresholdEntry pairs a user with their alert threshold.
type ThresholdEntry struct {
	UserID    string
	Threshold int
}

// NewProfile returns an empty profile with the default alert threshold.
func NewProfile(userID string, now time.Time) *Profile {
	threshold := alert.DefaultThreshold
	p := &Profile{
		UserID:         userID,
		AlertThreshold: &threshold,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.Risk = risk.Assess(p.RiskProfile())
	return p
}

func copyProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.Age != nil {
		val := *p.Age
		cpy.Age = &val
	}
	if p.AlertThreshold != nil {
		val := *p.AlertThreshold
		cpy.AlertThreshold = &val
	}
	return &cpy
}
