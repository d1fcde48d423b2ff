package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler runs the alert job on a fixed interval. The first run starts
// immediately and runs never overlap.
type Scheduler struct {
	cron     *gocron.Scheduler
	job      *Job
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler for job using the job's configured interval.
func NewScheduler(job *Job, logger zerolog.Logger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		cron:     cron,
		job:      job,
		interval: job.config.Interval,
		logger:   logger,
	}
}

// Start schedules the job and returns without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.Every(s.interval).Do(func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule alert run: %w", err)
	}

	s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")
	s.cron.StartAsync()
	return nil
}

// Stop stops scheduling; a run in flight is left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("alert scheduler stopped")
}

// RunOnce refreshes readings and evaluates every user.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if err := s.job.RefreshReadings(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readings refresh failed, evaluating cached data")
	}

	if _, err := s.job.RunAlertChecks(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Debug().Msg("skipping alert run, previous run still active")
			return
		}
		s.logger.Error().Err(err).Msg("alert run failed")
	}
}
