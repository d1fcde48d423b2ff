// Package config loads service configuration from the environment.
//
// A .env file in the working directory is loaded first when present; values
// already set in the process environment take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/database"
)

// DefaultJWTSigningKey is only accepted outside production.
const DefaultJWTSigningKey = "local-dev-signing-key-change-in-production"

// EnvProduction is the APP_ENV value that enables production checks.
const EnvProduction = "production"

// Config is the full service configuration.
type Config struct {
	App        AppConfig
	Telemetry  TelemetryConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	AirQuality AirQualityConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	PubSub     PubSubConfig
	Worker     WorkerConfig
}

type AppConfig struct {
	Port string
	Env  string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	LogLevel zerolog.Level
}

// IsProduction reports whether APP_ENV is production.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string

	// SampleRatio is the fraction of new traces kept, in [0, 1].
	SampleRatio    float64
	MetricInterval time.Duration
}

// DatabaseConfig wraps the pool settings. When Enabled is false the services
// run on in-memory repositories.
type DatabaseConfig struct {
	Enabled bool
	database.Config
}

type JWTConfig struct {
	SigningKey        string
	Issuer            string
	Audience          string
	AccessTokenExpiry time.Duration
}

type AirQualityConfig struct {
	OpenAQAPIKey  string
	OpenAQBaseURL string
	OpenAQCity    string
	UseSampleData bool
	CacheTTL      time.Duration
}

// UseOpenAQ reports whether live readings should be requested from OpenAQ.
func (a AirQualityConfig) UseOpenAQ() bool {
	return !a.UseSampleData && a.OpenAQAPIKey != ""
}

// RedisConfig is optional; an empty Addr keeps alert locking in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers disables alert event publishing.
type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

type PubSubConfig struct {
	ProjectID    string
	Subscription string
}

// Enabled reports whether on-demand jobs should be pulled from Pub/Sub.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.Subscription != ""
}

type WorkerConfig struct {
	AlertCheckInterval time.Duration
	Concurrency        int
	UseForecast        bool
	ForecastAlertHours int
}

// Load reads .env (if present) and the environment, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		App: AppConfig{
			Port: getEnv("APP_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),

			RequireTLS: p.boolean("REQUIRE_TLS", false),
			LogLevel:   p.level("LOG_LEVEL", zerolog.InfoLevel),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.boolean("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

			SampleRatio:    p.float("OTEL_TRACES_SAMPLE_RATIO", 1),
			MetricInterval: p.duration("OTEL_METRIC_INTERVAL", 15*time.Second),
		},
		Database: DatabaseConfig{
			Enabled: p.boolean("DB_ENABLED", true),
			Config:  databaseFromEnv(p),
		},
		JWT: JWTConfig{
			SigningKey:        getEnv("JWT_SIGNING_KEY", DefaultJWTSigningKey),
			Issuer:            getEnv("JWT_ISSUER", "https://api.cleanair.pk"),
			Audience:          getEnv("JWT_AUDIENCE", "cleanair-api"),
			AccessTokenExpiry: p.duration("JWT_ACCESS_TOKEN_EXPIRY", 30*time.Minute),
		},
		AirQuality: AirQualityConfig{
			OpenAQAPIKey:  os.Getenv("OPENAQ_API_KEY"),
			OpenAQBaseURL: getEnv("OPENAQ_BASE_URL", "https://api.openaq.org/v2"),
			OpenAQCity:    os.Getenv("OPENAQ_CITY"),
			UseSampleData: p.boolean("USE_SAMPLE_DATA", false),
			CacheTTL:      p.duration("READINGS_CACHE_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.integer("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AlertTopic: getEnv("KAFKA_ALERT_TOPIC", "cleanair.alerts"),
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		},
		Worker: WorkerConfig{
			AlertCheckInterval: p.duration("ALERT_CHECK_INTERVAL", 15*time.Minute),
			Concurrency:        p.integer("WORKER_CONCURRENCY", 4),
			UseForecast:        p.boolean("ALERTS_USE_FORECAST", false),
			ForecastAlertHours: p.integer("FORECAST_ALERT_HOURS", 24),
		},
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("parse config: %w", errors.Join(p.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and production requirements.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.App.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a port number, got %q", c.App.Port))
	}
	if c.App.IsProduction() && (c.JWT.SigningKey == "" || c.JWT.SigningKey == DefaultJWTSigningKey) {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1, got %g", c.Telemetry.SampleRatio))
	}
	if c.Telemetry.MetricInterval <= 0 {
		errs = append(errs, errors.New("OTEL_METRIC_INTERVAL must be positive"))
	}
	if c.Database.Enabled {
		if c.Database.MaxConns < 1 || c.Database.MaxConns > 100 {
			errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be between 1 and 100, got %d", c.Database.MaxConns))
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.Database.MinConns))
		}
		if c.Database.ConnectAttempts < 1 || c.Database.ConnectAttempts > 20 {
			errs = append(errs, fmt.Errorf("DB_CONNECT_ATTEMPTS must be between 1 and 20, got %d", c.Database.ConnectAttempts))
		}
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_EXPIRY must be positive"))
	}
	if c.AirQuality.CacheTTL <= 0 {
		errs = append(errs, errors.New("READINGS_CACHE_TTL must be positive"))
	}
	if c.Worker.AlertCheckInterval <= 0 {
		errs = append(errs, errors.New("ALERT_CHECK_INTERVAL must be positive"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be at least 1"))
	}
	if c.Worker.ForecastAlertHours < 1 || c.Worker.ForecastAlertHours > 168 {
		errs = append(errs, fmt.Errorf("FORECAST_ALERT_HOURS must be between 1 and 168, got %d", c.Worker.ForecastAlertHours))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AlertTopic == "" {
		errs = append(errs, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) integer(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) level(key string, def zerolog.Level) zerolog.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func databaseFromEnv(p *parser) database.Config {
	d := database.DefaultConfig()
	return database.Config{
		Host:            getEnv("DB_HOST", d.Host),
		Port:            p.integer("DB_PORT", d.Port),
		User:            getEnv("DB_USER", d.User),
		Password:        getEnv("DB_PASSWORD", d.Password),
		Name:            getEnv("DB_NAME", d.Name),
		SSLMode:         getEnv("DB_SSL_MODE", d.SSLMode),
		MaxConns:        int32(p.integer("DB_MAX_CONNS", int(d.MaxConns))), //nolint:gosec // bounded by Validate
		MinConns:        int32(p.integer("DB_MIN_CONNS", int(d.MinConns))), //nolint:gosec // bounded by Validate
		MaxConnLifetime: p.duration("DB_CONN_MAX_LIFETIME", d.MaxConnLifetime),
		ConnectAttempts: uint64(p.integer("DB_CONNECT_ATTEMPTS", int(d.ConnectAttempts))), //nolint:gosec // bounded by Validate
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
