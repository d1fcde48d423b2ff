package models

// Station is an air quality monitoring station.
type Station struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// StationsResponse lists the known stations.
type StationsResponse struct {
	Items  []Station `json:"items"`
	Source string    `json:"source"`
}

// Reading is a current PM2.5 reading with its AQI.
type Reading struct {
	StationID  string    `json:"stationId"`
	City       string    `json:"city"`
	PM25       float64   `json:"pm25"`
	Unit       string    `json:"unit"`
	AQI        int       `json:"aqi"`
	Category   string    `json:"category"`
	ObservedAt Timestamp `json:"observedAt"`
}

// CurrentAQIResponse is the response for GET /v1/aqi/current.
type CurrentAQIResponse struct {
	Items     []Reading `json:"items"`
	Source    string    `json:"source"`
	FetchedAt Timestamp `json:"fetchedAt"`
}

// HistoryPoint is one hourly historical value.
type HistoryPoint struct {
	Timestamp Timestamp `json:"timestamp"`
	PM25      float64   `json:"pm25"`
	AQI       int       `json:"aqi"`
}

// HistoryResponse is the response for GET /v1/aqi/historical/{stationId}.
type HistoryResponse struct {
	StationID string         `json:"stationId"`
	Days      int            `json:"days"`
	Points    []HistoryPoint `json:"points"`
}

// ConversionResponse is the response for GET /v1/aqi/convert.
type ConversionResponse struct {
	PM25     float64 `json:"pm25"`
	AQI      int     `json:"aqi"`
	Category string  `json:"category"`
}
