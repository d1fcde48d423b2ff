// Command worker evaluates alert thresholds on a schedule and on demand.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cleanairpk/cleanair/internal/app"
	"github.com/cleanairpk/cleanair/internal/config"
	"github.com/cleanairpk/cleanair/internal/worker"
)

const serviceName = "cleanair-worker"

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	log := app.NewLogger(os.Stdout, serviceName, Version, cfg.App.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting CleanAir worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close backends")
		}
	}()

	metrics := worker.NewMetrics()
	job := worker.NewJob(worker.JobConfig{
		Config: worker.Config{
			Interval:    cfg.Worker.AlertCheckInterval,
			Concurrency: cfg.Worker.Concurrency,
		},
		Users:    services.Users,
		Alerts:   services.Alerts,
		Readings: services.AirQuality,
		Metrics:  metrics,
		Logger:   log,
	})

	scheduler := worker.NewScheduler(job, log)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.PubSub.Enabled() {
		sub, err := worker.NewSubscriber(gctx, worker.SubscriberConfig{
			ProjectID:    cfg.PubSub.ProjectID,
			Subscription: cfg.PubSub.Subscription,
			Dispatcher:   worker.NewDispatcher(job, metrics, log),
			Logger:       log,
		})
		if err != nil {
			return err
		}
		defer func() { _ = sub.Close() }()
		g.Go(func() error { return sub.Run(gctx) })
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           probes(job),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("probe server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve probes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down worker")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("worker stopped")
	return nil
}

// probes serves liveness, readiness and Prometheus metrics.
func probes(job *worker.Job) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"OK","version":%q}`, Version)
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := job.HealthCheck(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
