// Package handler provides HTTP handlers for the CleanAir API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/api/response"
	"github.com/cleanairpk/cleanair/internal/provider/resilience"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies of the ops endpoints. Database,
// AirQuality and Registry are optional.
type OpsConfig struct {
	Version    string
	BuildTime  string
	Database   Pinger
	AirQuality *airquality.Service
	Registry   *resilience.Registry
	Clock      clockwork.Clock
}

// OpsHandler serves liveness, readiness and dependency status.
type OpsHandler struct {
	cfg OpsConfig
}

func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health. It never touches a dependency.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
		CheckedAt: models.Timestamp(h.cfg.Clock.Now()),
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Only the database gates readiness;
// readings always have the sample fallback.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if db := h.pingDatabase(r.Context()); db != nil && db.Status != models.HealthStatusOK {
		response.ServiceUnavailable(w, r, "database unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		CheckedAt: models.Timestamp(h.cfg.Clock.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		CheckedAt:    models.Timestamp(h.cfg.Clock.Now()),
		Dependencies: []models.DependencyStatus{},
		Providers:    []models.ProviderStatus{},
	}

	if db := h.pingDatabase(r.Context()); db != nil {
		status.Dependencies = append(status.Dependencies, *db)
		status.Status = status.Status.Worse(degradeFailure(db.Status))
	}

	if h.cfg.Registry != nil {
		for _, health := range h.cfg.Registry.All() {
			ps := toProviderStatus(health)
			status.Providers = append(status.Providers, ps)
			status.Status = status.Status.Worse(degradeFailure(ps.Status))
		}
	}

	if h.cfg.AirQuality != nil {
		status.Readings = toReadingsStatus(h.cfg.AirQuality.CacheStatus())
		if status.Readings.Fallback || !status.Readings.HasData {
			status.Status = status.Status.Worse(models.HealthStatusDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) *models.DependencyStatus {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	dep := &models.DependencyStatus{Name: "postgres", Status: models.HealthStatusOK}
	if err := h.cfg.Database.Ping(ctx); err != nil {
		dep.Status = models.HealthStatusFail
		dep.Error = err.Error()
	}
	return dep
}

// degradeFailure caps a single dependency failure at DEGRADED in the overall status.
func degradeFailure(s models.HealthStatus) models.HealthStatus {
	if s == models.HealthStatusFail {
		return models.HealthStatusDegraded
	}
	return s
}

var circuitHealth = map[gobreaker.State]models.HealthStatus{
	gobreaker.StateClosed:   models.HealthStatusOK,
	gobreaker.StateHalfOpen: models.HealthStatusDegraded,
	gobreaker.StateOpen:     models.HealthStatusFail,
}

func toProviderStatus(h resilience.Health) models.ProviderStatus {
	return models.ProviderStatus{
		Name:                h.Name,
		Status:              circuitHealth[h.State],
		Circuit:             h.State.String(),
		Requests:            h.Counts.Requests,
		ConsecutiveFailures: h.Counts.ConsecutiveFailures,
		LastSuccessAt:       optionalTimestamp(h.LastSuccess),
		LastFailureAt:       optionalTimestamp(h.LastFailure),
		LastError:           h.LastError,
	}
}

func toReadingsStatus(c airquality.CacheStatus) models.ReadingsStatus {
	return models.ReadingsStatus{
		HasData:      c.HasData,
		Source:       c.Source,
		FetchedAt:    optionalTimestamp(c.FetchedAt),
		Expired:      c.IsExpired,
		Fallback:     c.IsFallback,
		StationCount: c.StationCount,
	}
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
