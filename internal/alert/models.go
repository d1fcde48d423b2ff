// Package alert decides when a user should be warned about poor air quality
// and keeps the per-user alert log.
package alert

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors.
var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 500")
)

// Threshold bounds and defaults.
const (
	MinThreshold     = 0
	MaxThreshold     = 500
	DefaultThreshold = 150

	// CooldownWindow suppresses repeat alerts for the same user and city.
	CooldownWindow = 6 * time.Hour

	// MaxListLimit caps the number of alerts returned by List.
	MaxListLimit = 50
)

// Kind distinguishes how an alert was produced.
type Kind string

// Alert kinds.
const (
	KindThreshold Kind = "threshold"
	KindObserved  Kind = "observed"
	KindForecast  Kind = "forecast"
)

// Alert is one entry in a user's alert log. Only IsRead ever changes, and only
// from false to true.
type Alert struct {
	ID     string
	UserID string

	// City is empty for threshold notifications.
	City string

	Kind      Kind
	Message   string
	AQILevel  int
	IsRead    bool
	CreatedAt time.Time
}

// Reading is the current (or predicted) AQI for a city as seen by the evaluator.
type Reading struct {
	City       string
	StationID  string
	AQI        int
	ObservedAt time.Time

	// Forecast marks a predicted value rather than an observation.
	Forecast bool
}

// ValidateThreshold reports whether t is an acceptable AQI threshold.
func ValidateThreshold(t int) error {
	if t < MinThreshold || t > MaxThreshold {
		return ErrInvalidThreshold
	}
	return nil
}

// NewID returns a new alert identifier.
func NewID() string {
	return "alr_" + uuid.New().String()[:22]
}

// ThresholdMessage is the text of the notification recorded when a user
// changes their threshold.
func ThresholdMessage(threshold int) string {
	return fmt.Sprintf("Alert threshold set to %d AQI. You'll receive notifications when AQI exceeds this level.", threshold)
}

// ObservedMessage is the text of an alert for a current reading.
func ObservedMessage(city string, aqi, threshold int) string {
	return fmt.Sprintf("High AQI Alert for %s: %d AQI (Your threshold: %d)", city, aqi, threshold)
}

// ForecastMessage is the text of an alert for a predicted reading.
func ForecastMessage(city string, aqi, threshold int, at time.Time) string {
	return fmt.Sprintf("Forecast AQI Alert for %s: %d AQI expected at %s UTC (Your threshold: %d)",
		city, aqi, at.UTC().Format("2006-01-02 15:04"), threshold)
}

// ResultMessage summarizes an evaluation for the caller.
func ResultMessage(created int) string {
	if created > 0 {
		return fmt.Sprintf("Created %d new alert(s)", created)
	}
	return "No new alerts"
}

// NoThresholdMessage is reported when a user has no threshold configured.
const NoThresholdMessage = "No alert threshold set"

func copyAlert(a *Alert) *Alert {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}
