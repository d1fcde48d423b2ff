// Package api provides the HTTP API for CleanAir.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/alert"
	"github.com/cleanairpk/cleanair/internal/api/handler"
	"github.com/cleanairpk/cleanair/internal/api/middleware"
	"github.com/cleanairpk/cleanair/internal/auth"
	"github.com/cleanairpk/cleanair/internal/forecast"
	"github.com/cleanairpk/cleanair/internal/provider/resilience"
	"github.com/cleanairpk/cleanair/internal/telemetry"
	"github.com/cleanairpk/cleanair/internal/user"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Instruments *telemetry.Instruments

	JWTService     *auth.JWTService
	AirQuality     *airquality.Service
	History        *airquality.HistoryGenerator
	Forecast       *forecast.Generator
	UserService    *user.Service
	AlertService   *alert.Service
	Database       handler.Pinger
	ProviderHealth *resilience.Registry

	// Clock stamps ops responses. Defaults to the real clock.
	Clock clockwork.Clock

	// EnableDevTokens exposes POST /v1/auth/dev-token. Never set in production.
	EnableDevTokens bool

	// RequireTLS rejects plain HTTP forwarded by the load balancer.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cleanair-api"
	}

	// Order matters: the request ID and span exist before anything logs.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Database:   cfg.Database,
		AirQuality: cfg.AirQuality,
		Registry:   cfg.ProviderHealth,
		Clock:      cfg.Clock,
	})
	aqiHandler := handler.NewAQIHandler(cfg.AirQuality, cfg.History, cfg.Instruments, cfg.Logger)
	forecastHandler := handler.NewForecastHandler(cfg.Forecast)
	riskHandler := handler.NewRiskHandler()
	profileHandler := handler.NewProfileHandler(cfg.UserService, cfg.Logger)
	alertHandler := handler.NewAlertHandler(cfg.AlertService, cfg.Instruments, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.JWTService)

	tokenLimit := middleware.RateLimitByIP(middleware.TokenIssueLimit)
	computeLimit := middleware.RateLimitByIP(middleware.ComputeLimit)
	readLimit := middleware.RateLimitByIP(middleware.ReadLimit)

	r.Route("/v1", func(r chi.Router) {
		if cfg.EnableDevTokens {
			authHandler := handler.NewAuthHandler(cfg.JWTService, cfg.Logger)
			r.With(tokenLimit).Post("/auth/dev-token", authHandler.DevToken)
		}

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/aqi", func(r chi.Router) {
			r.Use(readLimit)
			r.Get("/current", aqiHandler.Current)
			r.Get("/stations", aqiHandler.Stations)
			r.Get("/historical/{stationId}", aqiHandler.Historical)
			r.Get("/convert", aqiHandler.Convert)
		})

		r.With(computeLimit).Get("/forecast", forecastHandler.GetForecast)
		r.With(readLimit).Post("/risk/assess", riskHandler.Assess)

		// Everything under /me acts on the token's user.
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.ReadLimit))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertHandler.ListAlerts)
				r.Post("/threshold", alertHandler.SetThreshold)
				r.With(middleware.RateLimitByUser(middleware.ComputeLimit)).Post("/check", alertHandler.CheckAlerts)
				r.Post("/read-all", alertHandler.MarkAllRead)
				r.Post("/{alertId}/read", alertHandler.MarkRead)
			})
		})
	})

	return r
}
