package models

// Alert is a stored alert record.
type Alert struct {
	ID        string    `json:"id"`
	City      string    `json:"city,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	AQILevel  int       `json:"aqiLevel"`
	IsRead    bool      `json:"isRead"`
	CreatedAt Timestamp `json:"createdAt"`
}

// AlertList is the response for GET /v1/me/alerts.
type AlertList struct {
	Items       []Alert `json:"items"`
	UnreadCount int     `json:"unreadCount"`
	Limit       int     `json:"limit"`
}

// ThresholdInput is the request body for POST /v1/me/alerts/threshold.
type ThresholdInput struct {
	Threshold *int `json:"threshold"`
}

// ThresholdResponse confirms a saved threshold.
type ThresholdResponse struct {
	Threshold int   `json:"threshold"`
	Alert     Alert `json:"alert"`
}

// AlertCheckResponse is the response for POST /v1/me/alerts/check.
type AlertCheckResponse struct {
	AlertsCreated int     `json:"alertsCreated"`
	Message       string  `json:"message"`
	Alerts        []Alert `json:"alerts"`
}

// MarkAllReadResponse reports how many alerts changed state.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}
