// Package app wires the CleanAir services from configuration. Both the API
// server and the worker build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/airquality/openaq"
	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/config"
	"github.com/cleanairpk/cleanair/internal/database"
	"github.com/cleanairpk/cleanair/internal/forecast"
	"github.com/cleanairpk/cleanair/internal/provider/resilience"
	"github.com/cleanairpk/cleanair/internal/user"
)

// Services holds everything built from a Config.
type Services struct {
	// Pool is nil when the database is disabled.
	Pool *pgxpool.Pool

	Registry   *resilience.Registry
	AirQuality *airquality.Service
	History    *airquality.HistoryGenerator
	Forecast   *forecast.Generator
	Users      *user.Service
	Alerts     *alert.Service

	closers []func() error
}

// Build connects to the configured backends and constructs the services.
// Optional backends (Redis, Kafka, OpenAQ) are skipped when unconfigured.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	s := &Services{Registry: resilience.NewRegistry()}

	var (
		userRepo  user.Repository
		alertRepo alert.Repository
	)
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database.Config)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.Pool = pool
		s.closers = append(s.closers, func() error { pool.Close(); return nil })

		if err := database.Migrate(ctx, pool); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}

		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")

		userRepo = user.NewPostgresRepository(pool)
		alertRepo = alert.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("database disabled, using in-memory repositories")
		userRepo = user.NewInMemoryRepository()
		alertRepo = alert.NewInMemoryRepository()
	}

	sample := airquality.NewSampleProvider(airquality.SampleProviderConfig{})
	var provider airquality.Provider = sample
	if cfg.AirQuality.UseOpenAQ() {
		provider = openaq.NewClient(openaq.ClientConfig{
			BaseURL:  cfg.AirQuality.OpenAQBaseURL,
			APIKey:   cfg.AirQuality.OpenAQAPIKey,
			City:     cfg.AirQuality.OpenAQCity,
			Registry: s.Registry,
			Logger:   log,
		})
		log.Info().Str("base_url", cfg.AirQuality.OpenAQBaseURL).Msg("using OpenAQ readings")
	} else {
		log.Info().Msg("using sample readings")
	}

	s.AirQuality = airquality.NewService(airquality.ServiceConfig{
		Provider: provider,
		Fallback: sample,
		Logger:   log,
		CacheTTL: cfg.AirQuality.CacheTTL,
	})
	s.History = airquality.NewHistoryGenerator(airquality.HistoryConfig{})
	s.Forecast = forecast.NewGenerator(forecast.DefaultConfig(), nil, nil)
	s.Users = user.NewService(userRepo, nil)

	var locker alert.Locker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		locker = alert.NewRedisLocker(client, alert.RedisLockerConfig{})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis alert locking enabled")
	}

	var publisher alert.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := alert.NewKafkaPublisher(alert.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic))
		s.closers = append(s.closers, kp.Close)
		publisher = kp
		log.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.AlertTopic).
			Msg("kafka alert publishing enabled")
	}

	readings := alert.ObservedReadings(s.AirQuality)
	if cfg.Worker.UseForecast {
		readings = alert.CombinedReadings(
			readings,
			forecast.PredictedReadings(s.Forecast, s.AirQuality, cfg.Worker.ForecastAlertHours),
		)
		log.Info().Int("hours", cfg.Worker.ForecastAlertHours).Msg("forecast alerts enabled")
	}

	s.Alerts = alert.NewService(alert.ServiceConfig{
		Repository: alertRepo,
		Thresholds: s.Users,
		Readings:   readings,
		Locker:     locker,
		Publisher:  publisher,
		Logger:     log,
	})

	return s, nil
}

// Close releases backends in reverse order of acquisition.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
