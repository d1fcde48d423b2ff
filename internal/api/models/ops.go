package models

// HealthStatus is the state reported by the ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the body of the liveness and readiness endpoints.
type Health struct {
	Status    HealthStatus `json:"status"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`
	CheckedAt Timestamp    `json:"checkedAt"`
}

// SystemStatus is the body of GET /v1/ops/status. Status is the worst of
// every dependency, provider and the readings cache.
type SystemStatus struct {
	Status       HealthStatus       `json:"status"`
	CheckedAt    Timestamp          `json:"checkedAt"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Providers    []ProviderStatus   `json:"providers"`
	Readings     ReadingsStatus     `json:"readings"`
}

type DependencyStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// ProviderStatus reports an upstream readings provider and its circuit.
type ProviderStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	Circuit             string       `json:"circuit"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
}

type ReadingsStatus struct {
	HasData      bool       `json:"hasData"`
	Source       string     `json:"source,omitempty"`
	FetchedAt    *Timestamp `json:"fetchedAt,omitempty"`
	Expired      bool       `json:"expired"`
	Fallback     bool       `json:"fallback"`
	StationCount int        `json:"stationCount"`
}

var healthRank = map[HealthStatus]int{
	HealthStatusOK:       0,
	HealthStatusDegraded: 1,
	HealthStatusFail:     2,
}

// Worse returns whichever of s and other is less healthy.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if healthRank[other] > healthRank[s] {
		return other
	}
	return s
}
