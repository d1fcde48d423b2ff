package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/worker"
)

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	users := &stubUsers{entries: entries("usr_a")}
	readings := &stubReadings{}
	job := worker.NewJob(worker.JobConfig{
		Config:   worker.Config{Interval: time.Hour},
		Users:    users,
		Alerts:   &stubChecker{},
		Readings: readings,
		Logger:   zerolog.Nop(),
	})

	scheduler := worker.NewScheduler(job, zerolog.Nop())
	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return users.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RunOnce_SkipsCancelledContext(t *testing.T) {
	users := &stubUsers{entries: entries("usr_a")}
	job := worker.NewJob(worker.JobConfig{Users: users, Alerts: &stubChecker{}, Logger: zerolog.Nop()})
	scheduler := worker.NewScheduler(job, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scheduler.RunOnce(ctx)

	assert.Zero(t, users.calls.Load())
}

func TestScheduler_RunOnce_ContinuesAfterRefreshError(t *testing.T) {
	users := &stubUsers{entries: entries("usr_a")}
	checker := &stubChecker{}
	job := worker.NewJob(worker.JobConfig{
		Users:    users,
		Alerts:   checker,
		Readings: &stubReadings{err: assert.AnError},
		Logger:   zerolog.Nop(),
	})

	worker.NewScheduler(job, zerolog.Nop()).RunOnce(context.Background())

	assert.Equal(t, []string{"usr_a"}, checker.checked)
}
