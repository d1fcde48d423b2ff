package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cleanair_worker"

// Metrics holds the Prometheus collectors for the alert worker.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: outcome={success,partial,failed,skipped}
	RunDuration      prometheus.Histogram
	UserChecks       *prometheus.CounterVec // labels: outcome={success,error}
	AlertsCreated    prometheus.Counter
	LastRunTimestamp prometheus.Gauge

	// Readings refresh metrics.
	ReadingsRefresh  *prometheus.CounterVec // labels: outcome={success,error}
	ReadingsFallback prometheus.Gauge

	Messages *prometheus.CounterVec // labels: job_type, disposition={ack,nack}
}

// NewMetrics creates and registers all worker metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_runs_total",
			Help:      "Alert evaluation runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_run_duration_seconds",
			Help:      "Duration of a complete alert evaluation run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		UserChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_checks_total",
			Help:      "Per-user alert evaluations by outcome.",
		}, []string{"outcome"}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total alerts created by scheduled and on-demand runs.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_last_run_timestamp_seconds",
			Help:      "Unix time the last alert run finished.",
		}),
		ReadingsRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_refresh_total",
			Help:      "Readings snapshot refreshes by outcome.",
		}, []string{"outcome"}),
		ReadingsFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readings_fallback",
			Help:      "1 when the cached readings come from the sample fallback, 0 otherwise.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_messages_total",
			Help:      "On-demand job messages by job type and disposition.",
		}, []string{"job_type", "disposition"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.UserChecks,
		m.AlertsCreated,
		m.LastRunTimestamp,
		m.ReadingsRefresh,
		m.ReadingsFallback,
		m.Messages,
	}
}
