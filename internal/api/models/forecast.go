package models

// ForecastPoint is one hourly forecast value.
type ForecastPoint struct {
	Timestamp       Timestamp `json:"timestamp"`
	PM25            float64   `json:"pm25"`
	ConfidenceLower float64   `json:"confidenceLower"`
	ConfidenceUpper float64   `json:"confidenceUpper"`
	AQI             int       `json:"aqi"`
	Category        string    `json:"category"`
}

// ForecastResponse is the response for GET /v1/forecast.
type ForecastResponse struct {
	City        string          `json:"city"`
	Hours       int             `json:"hours"`
	GeneratedAt Timestamp       `json:"generatedAt"`
	Points      []ForecastPoint `json:"points"`
}
