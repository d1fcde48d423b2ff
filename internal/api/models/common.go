// Package models defines the JSON bodies of the CleanAir API.
package models

import (
	"encoding/json"
	"math"
	"time"
)

// Timestamp is an instant serialized as RFC 3339 in UTC at second precision,
// e.g. "2025-01-15T09:00:00Z".
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Truncate(time.Second).Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns t as a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Round1 rounds to one decimal place. AQI values and concentrations are
// reported at this precision.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
