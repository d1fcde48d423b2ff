package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

// HistoryQuerier answers whether a user was already alerted about a city.
type HistoryQuerier interface {
	// HasRecentForCity reports whether an alert for (userID, city) was
	// created at or after since. City matching is case-insensitive.
	HasRecentForCity(ctx context.Context, userID, city string, since time.Time) (bool, error)
}

// Evaluation is the outcome of one evaluation pass. Candidates are not yet
// persisted.
type Evaluation struct {
	Candidates []*Alert

	// Suppressed counts readings above threshold held back by the cooldown.
	Suppressed int

	// NoThreshold is true when the user has no threshold and nothing was evaluated.
	NoThreshold bool
}

// Evaluator compares readings to a user's threshold.
type Evaluator struct {
	clock    clockwork.Clock
	cooldown time.Duration
	newID    func() string
}

// NewEvaluator creates an evaluator with the standard 6 hour cooldown.
func NewEvaluator(clock clockwork.Clock) *Evaluator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Evaluator{
		clock:    clock,
		cooldown: CooldownWindow,
		newID:    NewID,
	}
}

// Evaluate returns the alerts that should be created for readings whose AQI
// exceeds the threshold. A city alerted within the cooldown window, or already
// alerted earlier in the same batch, is skipped. A nil threshold is a no-op.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, threshold *int, readings []Reading, history HistoryQuerier) (*Evaluation, error) {
	if threshold == nil {
		return &Evaluation{NoThreshold: true}, nil
	}

	now := e.clock.Now().UTC()
	since := now.Add(-e.cooldown)
	seen := make(map[string]bool)
	result := &Evaluation{}

	for _, r := range readings {
		if r.AQI <= *threshold {
			continue
		}

		key := airquality.NormalizeCity(r.City)
		if key == "" {
			continue
		}
		if seen[key] {
			result.Suppressed++
			continue
		}
		seen[key] = true

		recent, err := history.HasRecentForCity(ctx, userID, r.City, since)
		if err != nil {
			return nil, fmt.Errorf("query alert history for %s: %w", r.City, err)
		}
		if recent {
			result.Suppressed++
			continue
		}

		result.Candidates = append(result.Candidates, e.newAlert(userID, *threshold, r, now))
	}

	return result, nil
}

func (e *Evaluator) newAlert(userID string, threshold int, r Reading, now time.Time) *Alert {
	a := &Alert{
		ID:        e.newID(),
		UserID:    userID,
		City:      r.City,
		Kind:      KindObserved,
		Message:   ObservedMessage(r.City, r.AQI, threshold),
		AQILevel:  r.AQI,
		CreatedAt: now,
	}
	if r.Forecast {
		a.Kind = KindForecast
		a.Message = ForecastMessage(r.City, r.AQI, threshold, r.ObservedAt)
	}
	return a
}
