package airquality

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Cache defaults.
const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultStaleIfErrorTTL = 30 * time.Minute
)

// Provider is a source of station snapshots.
type Provider interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// ServiceConfig configures a Service. Zero durations take the defaults.
type ServiceConfig struct {
	// Provider is the primary source. When nil, Fallback is used directly.
	Provider Provider

	// Fallback serves labeled sample data once the primary fails and the
	// cached snapshot is too old to reuse.
	Fallback Provider

	Logger          zerolog.Logger
	CacheTTL        time.Duration
	StaleIfErrorTTL time.Duration
	Clock           clockwork.Clock
}

// cached is an immutable view of the current snapshot.
type cached struct {
	snapshot *Snapshot
	expires  time.Time
	fallback bool
}

func (c *cached) freshAt(now time.Time) bool {
	return c != nil && now.Before(c.expires)
}

// Service caches snapshots from a Provider. Readers never block on a fetch
// while the cache is fresh; concurrent misses share a single fetch.
type Service struct {
	primary  Provider
	fallback Provider
	log      zerolog.Logger
	ttl      time.Duration
	staleTTL time.Duration
	clock    clockwork.Clock

	current atomic.Pointer[cached]
	fetchMu sync.Mutex
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		primary:  cfg.Provider,
		fallback: cfg.Fallback,
		log:      cfg.Logger,
		ttl:      cfg.CacheTTL,
		staleTTL: cfg.StaleIfErrorTTL,
		clock:    cfg.Clock,
	}
	if s.primary == nil {
		s.primary = s.fallback
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}
	if s.staleTTL <= 0 {
		s.staleTTL = DefaultStaleIfErrorTTL
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

// GetSnapshot returns the cached snapshot, fetching a new one once it expires.
func (s *Service) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	if c := s.current.Load(); c.freshAt(s.clock.Now()) {
		return c.snapshot, nil
	}
	return s.refresh(ctx, false)
}

// GetStations returns every station in the current snapshot, ordered by ID.
func (s *Service) GetStations(ctx context.Context) ([]*Station, error) {
	snapshot, err := s.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.StationList(), nil
}

// GetStation returns a station with its latest reading.
func (s *Service) GetStation(ctx context.Context, stationID string) (*Station, *Reading, error) {
	snapshot, err := s.GetSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	station, ok := snapshot.Stations[stationID]
	if !ok {
		return nil, nil, ErrStationNotFound
	}
	if reading, ok := snapshot.Readings[stationID]; ok {
		return station, reading, nil
	}
	return station, nil, ErrNoReadings
}

// CurrentReadings returns the latest readings, filtered to city when it is
// non-empty, together with the source label.
func (s *Service) CurrentReadings(ctx context.Context, city string) ([]*Reading, string, error) {
	snapshot, err := s.GetSnapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	return snapshot.ReadingList(city), snapshot.Source, nil
}

// CityReadings returns the worst current reading per city.
func (s *Service) CityReadings(ctx context.Context) ([]CityReading, error) {
	snapshot, err := s.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.CityReadings(), nil
}

// RefreshSnapshot fetches a new snapshot regardless of cache age. A failed
// fetch keeps serving through the stale and fallback paths.
func (s *Service) RefreshSnapshot(ctx context.Context) error {
	_, err := s.refresh(ctx, true)
	return err
}

// InvalidateCache drops the cached snapshot.
func (s *Service) InvalidateCache() {
	s.current.Store(nil)
}

// CacheStatus describes the cached snapshot.
type CacheStatus struct {
	HasData      bool
	FetchedAt    time.Time
	ExpiresAt    time.Time
	IsExpired    bool
	IsStale      bool
	IsFallback   bool
	StationCount int
	Source       string
}

// CacheStatus reports the age and origin of the cached snapshot.
func (s *Service) CacheStatus() CacheStatus {
	c := s.current.Load()
	if c == nil {
		return CacheStatus{}
	}
	now := s.clock.Now()
	return CacheStatus{
		HasData:      true,
		FetchedAt:    c.snapshot.FetchedAt,
		ExpiresAt:    c.expires,
		IsExpired:    !now.Before(c.expires),
		IsStale:      now.After(c.snapshot.FetchedAt.Add(s.staleTTL)),
		IsFallback:   c.fallback,
		StationCount: len(c.snapshot.Stations),
		Source:       c.snapshot.Source,
	}
}

func (s *Service) refresh(ctx context.Context, force bool) (*Snapshot, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	now := s.clock.Now()
	prev := s.current.Load()
	if !force && prev.freshAt(now) {
		return prev.snapshot, nil
	}
	if s.primary == nil {
		return nil, ErrProviderUnavailable
	}

	ctx, span := otel.Tracer("github.com/cleanairpk/cleanair/internal/airquality").
		Start(ctx, "airquality.refresh")
	defer span.End()

	snapshot, err := s.primary.FetchSnapshot(ctx)
	if err == nil {
		s.store(snapshot, now, false)
		span.SetAttributes(
			attribute.String("airquality.source", snapshot.Source),
			attribute.Int("airquality.stations", len(snapshot.Stations)),
		)
		s.log.Info().
			Str("source", snapshot.Source).
			Int("stations", len(snapshot.Stations)).
			Int("readings", len(snapshot.Readings)).
			Msg("readings snapshot refreshed")
		return snapshot, nil
	}

	span.RecordError(err)
	s.log.Error().Err(err).Msg("readings provider failed")

	if prev != nil && !prev.fallback && now.Before(prev.snapshot.FetchedAt.Add(s.staleTTL)) {
		span.SetAttributes(attribute.Bool("airquality.stale", true))
		s.log.Warn().Time("fetched_at", prev.snapshot.FetchedAt).Msg("serving stale readings")
		return prev.snapshot, nil
	}

	if s.fallback == nil || s.fallback == s.primary {
		span.SetStatus(codes.Error, "no readings available")
		return nil, ErrProviderUnavailable
	}
	snapshot, err = s.fallback.FetchSnapshot(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "fallback failed")
		s.log.Error().Err(err).Msg("fallback readings failed")
		return nil, ErrProviderUnavailable
	}

	s.store(snapshot, now, true)
	span.SetAttributes(attribute.Bool("airquality.fallback", true))
	s.log.Warn().
		Str("source", snapshot.Source).
		Int("stations", len(snapshot.Stations)).
		Msg("serving fallback readings")
	return snapshot, nil
}

func (s *Service) store(snapshot *Snapshot, now time.Time, fallback bool) {
	s.current.Store(&cached{snapshot: snapshot, expires: now.Add(s.ttl), fallback: fallback})
}
