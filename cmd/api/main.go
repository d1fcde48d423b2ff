// Command api serves the CleanAir HTTP API.
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

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cleanairpk/cleanair/internal/api"
	"github.com/cleanairpk/cleanair/internal/api/handler"
	"github.com/cleanairpk/cleanair/internal/api/middleware"
	"github.com/cleanairpk/cleanair/internal/app"
	"github.com/cleanairpk/cleanair/internal/auth"
	"github.com/cleanairpk/cleanair/internal/config"
	"github.com/cleanairpk/cleanair/internal/telemetry"
)

const serviceName = "cleanair-api"

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
		log.Fatal().Err(err).Msg("api exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting CleanAir API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer flush(log, "telemetry", tel.Shutdown)

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	services, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close backends")
		}
	}()

	if cfg.JWT.SigningKey == config.DefaultJWTSigningKey {
		log.Warn().Msg("using the development JWT signing key")
	}
	devTokens := !cfg.App.IsProduction()
	if devTokens {
		log.Warn().Msg("dev token endpoint enabled")
	}

	// A nil *pgxpool.Pool must not become a non-nil Pinger.
	var db handler.Pinger
	if services.Pool != nil {
		db = services.Pool
	}

	server := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:     Version,
			BuildTime:   BuildTime,
			Logger:      log,
			ServiceName: serviceName,
			Metrics:     metrics,
			Instruments: tel.Instruments,
			JWTService: auth.NewJWTService(auth.JWTConfig{
				SigningKey:        cfg.JWT.SigningKey,
				Issuer:            cfg.JWT.Issuer,
				Audience:          cfg.JWT.Audience,
				AccessTokenExpiry: cfg.JWT.AccessTokenExpiry,
			}),
			AirQuality:      services.AirQuality,
			History:         services.History,
			Forecast:        services.Forecast,
			UserService:     services.Users,
			AlertService:    services.Alerts,
			Database:        db,
			ProviderHealth:  services.Registry,
			EnableDevTokens: devTokens,
			RequireTLS:      cfg.App.RequireTLS,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// flush runs a shutdown func with its own deadline, logging failures.
func flush(log zerolog.Logger, what string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error().Err(err).Str("component", what).Msg("shutdown failed")
	}
}
