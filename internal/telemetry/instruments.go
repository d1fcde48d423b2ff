package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the domain metrics recorded by the API. A nil *Instruments
// records nothing.
type Instruments struct {
	alertChecks    metric.Int64Counter
	alertsCreated  metric.Int64Counter
	readingsServed metric.Int64Counter
}

// NewInstruments creates the domain instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	alertChecks, err := meter.Int64Counter(
		"cleanair.alert.checks",
		metric.WithDescription("On-demand alert evaluations"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	alertsCreated, err := meter.Int64Counter(
		"cleanair.alert.created",
		metric.WithDescription("Alerts created by on-demand evaluations"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	readingsServed, err := meter.Int64Counter(
		"cleanair.readings.served",
		metric.WithDescription("Readings responses by source"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		alertChecks:    alertChecks,
		alertsCreated:  alertsCreated,
		readingsServed: readingsServed,
	}, nil
}

// RecordAlertCheck counts one evaluation and the alerts it created.
func (i *Instruments) RecordAlertCheck(ctx context.Context, created int) {
	if i == nil {
		return
	}
	i.alertChecks.Add(ctx, 1)
	if created > 0 {
		i.alertsCreated.Add(ctx, int64(created))
	}
}

// RecordReadingsServed counts a readings response by source.
func (i *Instruments) RecordReadingsServed(ctx context.Context, source string, fallback bool) {
	if i == nil {
		return
	}
	i.readingsServed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("fallback", fallback),
	))
}
