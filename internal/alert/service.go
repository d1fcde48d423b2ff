package alert

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

// ThresholdStore reads and writes a user's alert threshold.
type ThresholdStore interface {
	// Threshold returns nil when the user has no threshold.
	Threshold(ctx context.Context, userID string) (*int, error)

	// SetThreshold persists a threshold, creating the profile if needed.
	SetThreshold(ctx context.Context, userID string, threshold int) error
}

// ReadingsSource supplies the readings an evaluation runs against.
type ReadingsSource interface {
	Readings(ctx context.Context) ([]Reading, error)
}

// ReadingsSourceFunc adapts a function to ReadingsSource.
type ReadingsSourceFunc func(ctx context.Context) ([]Reading, error)

// Readings calls f.
func (f ReadingsSourceFunc) Readings(ctx context.Context) ([]Reading, error) { return f(ctx) }

// CityReader returns the worst current reading per city.
type CityReader interface {
	CityReadings(ctx context.Context) ([]airquality.CityReading, error)
}

// ObservedReadings turns current city readings into evaluator input.
func ObservedReadings(src CityReader) ReadingsSource {
	return ReadingsSourceFunc(func(ctx context.Context) ([]Reading, error) {
		cities, err := src.CityReadings(ctx)
		if err != nil {
			return nil, err
		}
		readings := make([]Reading, len(cities))
		for i, c := range cities {
			readings[i] = Reading{City: c.City, StationID: c.StationID, AQI: c.AQI, ObservedAt: c.ObservedAt}
		}
		return readings, nil
	})
}

// CombinedReadings concatenates several sources in order. Observed sources
// should come first so they win the per-city slot in a batch.
func CombinedReadings(sources ...ReadingsSource) ReadingsSource {
	return ReadingsSourceFunc(func(ctx context.Context) ([]Reading, error) {
		var all []Reading
		for _, s := range sources {
			readings, err := s.Readings(ctx)
			if err != nil {
				return nil, err
			}
			all = append(all, readings...)
		}
		return all, nil
	})
}

// ServiceConfig holds configuration for the alert service.
type ServiceConfig struct {
	Repository Repository
	Thresholds ThresholdStore
	Readings   ReadingsSource

	// Evaluator defaults to NewEvaluator(Clock).
	Evaluator *Evaluator

	// Locker defaults to an in-process KeyedMutex.
	Locker Locker

	// Publisher defaults to NopPublisher.
	Publisher Publisher

	Logger zerolog.Logger
	Clock  clockwork.Clock
}

// CheckResult is the outcome of CheckAlerts.
type CheckResult struct {
	AlertsCreated int
	Message       string
	Alerts        []*Alert
}

// Service runs evaluations and manages the alert log.
type Service struct {
	repo       Repository
	thresholds ThresholdStore
	readings   ReadingsSource
	evaluator  *Evaluator
	locker     Locker
	publisher  Publisher
	logger     zerolog.Logger
	clock      clockwork.Clock
}

// NewService creates a new alert service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	evaluator := cfg.Evaluator
	if evaluator == nil {
		evaluator = NewEvaluator(clock)
	}
	locker := cfg.Locker
	if locker == nil {
		locker = NewKeyedMutex()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}

	return &Service{
		repo:       cfg.Repository,
		thresholds: cfg.Thresholds,
		readings:   cfg.Readings,
		evaluator:  evaluator,
		locker:     locker,
		publisher:  publisher,
		logger:     cfg.Logger,
		clock:      clock,
	}
}

// CheckAlerts evaluates current readings against the user's threshold and
// stores the resulting alerts in one all-or-nothing batch.
func (s *Service) CheckAlerts(ctx context.Context, userID string) (*CheckResult, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	created, noThreshold, err := s.evaluateLocked(ctx, userID)
	unlock()
	if err != nil {
		return nil, err
	}

	if noThreshold {
		return &CheckResult{Message: NoThresholdMessage}, nil
	}

	s.publish(ctx, created)

	return &CheckResult{
		AlertsCreated: len(created),
		Message:       ResultMessage(len(created)),
		Alerts:        created,
	}, nil
}

func (s *Service) evaluateLocked(ctx context.Context, userID string) ([]*Alert, bool, error) {
	threshold, err := s.thresholds.Threshold(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("get threshold: %w", err)
	}
	if threshold == nil {
		return nil, true, nil
	}

	readings, err := s.readings.Readings(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("get readings: %w", err)
	}

	eval, err := s.evaluator.Evaluate(ctx, userID, threshold, readings, s.repo)
	if err != nil {
		return nil, false, err
	}

	if err := s.repo.InsertBatch(ctx, eval.Candidates); err != nil {
		return nil, false, fmt.Errorf("store alerts: %w", err)
	}

	if len(eval.Candidates) > 0 || eval.Suppressed > 0 {
		s.logger.Info().
			Str("user_id", userID).
			Int("threshold", *threshold).
			Int("created", len(eval.Candidates)).
			Int("suppressed", eval.Suppressed).
			Msg("alerts evaluated")
	}

	return eval.Candidates, false, nil
}

// SetThreshold validates and stores a new threshold, then records an
// informational alert for it.
func (s *Service) SetThreshold(ctx context.Context, userID string, threshold int) (*Alert, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	if err := s.thresholds.SetThreshold(ctx, userID, threshold); err != nil {
		return nil, fmt.Errorf("set threshold: %w", err)
	}

	a := &Alert{
		ID:        NewID(),
		UserID:    userID,
		Kind:      KindThreshold,
		Message:   ThresholdMessage(threshold),
		AQILevel:  threshold,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("store threshold alert: %w", err)
	}

	s.publish(ctx, []*Alert{a})
	return a, nil
}

// List returns the user's most recent alerts, newest first, with the unread count.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*Alert, int, error) {
	alerts, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return alerts, unread, nil
}

// MarkRead marks one of the user's alerts read.
func (s *Service) MarkRead(ctx context.Context, userID, alertID string) error {
	return s.repo.MarkRead(ctx, userID, alertID)
}

// MarkAllRead marks all of the user's unread alerts read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// publish failures never undo stored alerts.
func (s *Service) publish(ctx context.Context, alerts []*Alert) {
	if len(alerts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, alerts); err != nil {
		s.logger.Warn().Err(err).Int("count", len(alerts)).Msg("failed to publish alert events")
	}
}
