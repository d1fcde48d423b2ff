package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

// Repository defines the interface for alert persistence.
type Repository interface {
	HistoryQuerier

	// Insert stores a single alert.
	Insert(ctx context.Context, a *Alert) error

	// InsertBatch stores all alerts or none of them.
	InsertBatch(ctx context.Context, alerts []*Alert) error

	// List returns a user's alerts newest first, at most limit.
	List(ctx context.Context, userID string, limit int) ([]*Alert, error)

	// CountUnread returns the number of unread alerts for a user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks one alert read. Returns ErrAlertNotFound if the alert
	// does not exist or belongs to another user.
	MarkRead(ctx context.Context, userID, alertID string) error

	// MarkAllRead marks every unread alert of a user read and returns how
	// many changed.
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local runs. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
	byUser map[string][]string
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
		byUser: make(map[string][]string),
	}
}

// Insert stores a single alert.
func (r *InMemoryRepository) Insert(ctx context.Context, a *Alert) error {
	return r.InsertBatch(ctx, []*Alert{a})
}

// InsertBatch stores all alerts.
func (r *InMemoryRepository) InsertBatch(_ context.Context, alerts []*Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range alerts {
		r.alerts[a.ID] = copyAlert(a)
		r.byUser[a.UserID] = append(r.byUser[a.UserID], a.ID)
	}
	return nil
}

// HasRecentForCity reports whether the user has an alert for city created at or after since.
func (r *InMemoryRepository) HasRecentForCity(_ context.Context, userID, city string, since time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.byUser[userID] {
		a := r.alerts[id]
		if a.City != "" && airquality.SameCity(a.City, city) && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// List returns a user's alerts newest first.
func (r *InMemoryRepository) List(_ context.Context, userID string, limit int) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := make([]*Alert, 0, len(r.byUser[userID]))
	for _, id := range r.byUser[userID] {
		alerts = append(alerts, copyAlert(r.alerts[id]))
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

// CountUnread returns the number of unread alerts for a user.
func (r *InMemoryRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.byUser[userID] {
		if !r.alerts[id].IsRead {
			n++
		}
	}
	return n, nil
}

// MarkRead marks one alert read.
func (r *InMemoryRepository) MarkRead(_ context.Context, userID, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[alertID]
	if !ok || a.UserID != userID {
		return ErrAlertNotFound
	}
	a.IsRead = true
	return nil
}

// MarkAllRead marks every unread alert of a user read.
func (r *InMemoryRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, id := range r.byUser[userID] {
		if a := r.alerts[id]; !a.IsRead {
			a.IsRead = true
			n++
		}
	}
	return n, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
