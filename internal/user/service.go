package user

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/api/models"
	"github.com/cleanairpk/cleanair/internal/risk"
)

// Validation limits.
const (
	MaxAge               = 130
	MaxDailyOutdoorHours = 24
)

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Age                  *int
	HasChronicConditions bool
	IsSmoker             bool
	DailyOutdoorHours    int
}

// Service provides profile operations.
type Service struct {
	repo  Repository
	clock clockwork.Clock

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewService creates a new profile service.
func NewService(repo Repository, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: repo, clock: clock}
}

// GetProfile retrieves the user's profile. Returns ErrProfileNotFound if
// the user has never saved one.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// UpsertProfile validates the input, recomputes the risk assessment and
// stores the profile. The alert threshold is preserved.
func (s *Service) UpsertProfile(ctx context.Context, userID string, input ProfileInput) (*Profile, error) {
	if fieldErrors := ValidateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getOrNew(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Age = input.Age
	p.HasChronicConditions = input.HasChronicConditions
	p.IsSmoker = input.IsSmoker
	p.DailyOutdoorHours = input.DailyOutdoorHours
	p.Risk = risk.Assess(p.RiskProfile())
	p.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Threshold returns the user's alert threshold, or nil if there is none.
func (s *Service) Threshold(ctx context.Context, userID string) (*int, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p.AlertThreshold, nil
}

// SetThreshold stores a new threshold, creating the profile if needed.
func (s *Service) SetThreshold(ctx context.Context, userID string, threshold int) error {
	if err := alert.ValidateThreshold(threshold); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getOrNew(ctx, userID)
	if err != nil {
		return err
	}
	p.AlertThreshold = &threshold
	p.UpdatedAt = s.clock.Now().UTC()

	return s.repo.Upsert(ctx, p)
}

// ListWithThreshold returns every user that should be evaluated.
func (s *Service) ListWithThreshold(ctx context.Context) ([]ThresholdEntry, error) {
	return s.repo.ListWithThreshold(ctx)
}

func (s *Service) getOrNew(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	return NewProfile(userID, s.clock.Now().UTC()), nil
}

// ValidateInput checks profile ranges without touching storage.
func ValidateInput(input ProfileInput) []models.FieldError {
	var errs []models.FieldError

	if input.Age != nil && (*input.Age < 0 || *input.Age > MaxAge) {
		errs = append(errs, models.FieldError{Field: "age", Message: "must be between 0 and 130"})
	}
	if input.DailyOutdoorHours < 0 || input.DailyOutdoorHours > MaxDailyOutdoorHours {
		errs = append(errs, models.FieldError{Field: "dailyOutdoorHours", Message: "must be between 0 and 24"})
	}

	return errs
}

// Ensure Service satisfies the alert threshold store.
var _ alert.ThresholdStore = (*Service)(nil)
