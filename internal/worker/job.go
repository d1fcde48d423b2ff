package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/user"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("alert run already in progress")

// UserLister lists every user with an alert threshold.
type UserLister interface {
	ListWithThreshold(ctx context.Context) ([]user.ThresholdEntry, error)
}

// AlertChecker evaluates one user. *alert.Service satisfies it.
type AlertChecker interface {
	CheckAlerts(ctx context.Context, userID string) (*alert.CheckResult, error)
}

// ReadingsRefresher refreshes the shared readings snapshot. *airquality.Service satisfies it.
type ReadingsRefresher interface {
	RefreshSnapshot(ctx context.Context) error
	CacheStatus() airquality.CacheStatus
}

// JobConfig holds the dependencies of a Job.
type JobConfig struct {
	Config Config
	Users  UserLister
	Alerts AlertChecker

	// Readings is optional; without it runs use whatever the checker sees.
	Readings ReadingsRefresher

	// Metrics is optional.
	Metrics *Metrics

	Logger zerolog.Logger
	Clock  clockwork.Clock
}

// Job evaluates alerts for every user with a threshold.
type Job struct {
	config   Config
	users    UserLister
	alerts   AlertChecker
	readings ReadingsRefresher
	metrics  *Metrics
	logger   zerolog.Logger
	clock    clockwork.Clock

	running atomic.Bool
}

// NewJob creates a new alert evaluation job.
func NewJob(cfg JobConfig) *Job {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Job{
		config:   cfg.Config.withDefaults(),
		users:    cfg.Users,
		alerts:   cfg.Alerts,
		readings: cfg.Readings,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		clock:    clock,
	}
}

// RunResult summarizes one alert run.
type RunResult struct {
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	UsersTotal    int
	UsersChecked  int
	UsersFailed   int
	AlertsCreated int
	Errors        []UserError
}

// UserError records a failed evaluation.
type UserError struct {
	UserID string
	Error  string
}

// Outcome classifies the run for metrics.
func (r *RunResult) Outcome() string {
	switch {
	case r.UsersFailed == 0:
		return "success"
	case r.UsersChecked > 0:
		return "partial"
	default:
		return "failed"
	}
}

// RunAlertChecks evaluates every user with a threshold using a bounded pool.
// Only one run executes at a time per Job.
func (j *Job) RunAlertChecks(ctx context.Context) (*RunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.observeRun("skipped", nil)
		return nil, ErrRunInProgress
	}
	defer j.running.Store(false)

	startTime := j.clock.Now()

	entries, err := j.users.ListWithThreshold(ctx)
	if err != nil {
		j.observeRun("failed", nil)
		return nil, fmt.Errorf("list users with threshold: %w", err)
	}

	result := &RunResult{
		StartTime:  startTime,
		UsersTotal: len(entries),
	}

	j.logger.Info().
		Int("users", result.UsersTotal).
		Int("concurrency", j.config.Concurrency).
		Msg("starting alert run")

	usersChan := make(chan string, len(entries))
	resultsChan := make(chan userResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.checkWorker(ctx, usersChan, resultsChan)
		}()
	}

	for _, e := range entries {
		usersChan <- e.UserID
	}
	close(usersChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for ur := range resultsChan {
		if ur.err != nil {
			result.UsersFailed++
			result.Errors = append(result.Errors, UserError{UserID: ur.userID, Error: ur.err.Error()})
			continue
		}
		result.UsersChecked++
		result.AlertsCreated += ur.created
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.observeRun(result.Outcome(), result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("checked", result.UsersChecked).
		Int("failed", result.UsersFailed).
		Int("alerts_created", result.AlertsCreated).
		Msg("alert run completed")

	return result, nil
}

// CheckUser evaluates a single user outside the schedule.
func (j *Job) CheckUser(ctx context.Context, userID string) (*alert.CheckResult, error) {
	ur := j.checkUser(ctx, userID)
	if ur.err != nil {
		return nil, ur.err
	}
	return ur.result, nil
}

type userResult struct {
	userID  string
	created int
	result  *alert.CheckResult
	err     error
}

func (j *Job) checkWorker(ctx context.Context, users <-chan string, results chan<- userResult) {
	for userID := range users {
		select {
		case <-ctx.Done():
			results <- userResult{userID: userID, err: ctx.Err()}
		default:
			results <- j.checkUser(ctx, userID)
		}
	}
}

func (j *Job) checkUser(ctx context.Context, userID string) userResult {
	userCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.alerts.CheckAlerts(userCtx, userID)
	if err != nil {
		j.logger.Warn().Err(err).Str("user_id", userID).Msg("alert check failed")
		if j.metrics != nil {
			j.metrics.UserChecks.WithLabelValues("error").Inc()
		}
		return userResult{userID: userID, err: err}
	}

	if j.metrics != nil {
		j.metrics.UserChecks.WithLabelValues("success").Inc()
		j.metrics.AlertsCreated.Add(float64(res.AlertsCreated))
	}
	return userResult{userID: userID, created: res.AlertsCreated, result: res}
}

// RefreshReadings forces a snapshot refresh so the next run sees fresh data.
func (j *Job) RefreshReadings(ctx context.Context) error {
	if j.readings == nil {
		return nil
	}

	err := j.readings.RefreshSnapshot(ctx)
	status := j.readings.CacheStatus()

	if j.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		j.metrics.ReadingsRefresh.WithLabelValues(outcome).Inc()
		if status.IsFallback {
			j.metrics.ReadingsFallback.Set(1)
		} else {
			j.metrics.ReadingsFallback.Set(0)
		}
	}

	if err != nil {
		return fmt.Errorf("refresh readings: %w", err)
	}

	j.logger.Debug().
		Str("source", status.Source).
		Int("stations", status.StationCount).
		Bool("fallback", status.IsFallback).
		Msg("readings refreshed")
	return nil
}

// HealthCheck verifies that users can be listed and readings are available.
func (j *Job) HealthCheck(ctx context.Context) error {
	if _, err := j.users.ListWithThreshold(ctx); err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if j.readings != nil && !j.readings.CacheStatus().HasData {
		return j.RefreshReadings(ctx)
	}
	return nil
}

func (j *Job) observeRun(outcome string, result *RunResult) {
	if j.metrics == nil {
		return
	}
	j.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	if result != nil {
		j.metrics.RunDuration.Observe(result.Duration.Seconds())
		j.metrics.LastRunTimestamp.Set(float64(result.EndTime.Unix()))
	}
}
