package airquality_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

var (
	testNow         = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	errProviderDown = errors.New("provider down")
)

// scriptedProvider returns snap until fail is set.
type scriptedProvider struct {
	mu    sync.Mutex
	snap  *airquality.Snapshot
	fail  bool
	calls atomic.Int32
}

func (p *scriptedProvider) FetchSnapshot(context.Context) (*airquality.Snapshot, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errProviderDown
	}
	return p.snap, nil
}

func (p *scriptedProvider) setFailing(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

func threeStations() *airquality.Snapshot {
	s := airquality.NewSnapshot("openaq", testNow)
	for _, st := range []airquality.Station{
		{ID: "lhr-1", Name: "Lahore Mall Road", City: "Lahore"},
		{ID: "lhr-2", Name: "Lahore Gulberg", City: "Lahore"},
		{ID: "isb-1", Name: "Islamabad F-9", City: "Islamabad"},
	} {
		st := st
		s.Stations[st.ID] = &st
	}
	s.AddReading(airquality.NewReading("lhr-1", "Lahore", 160.2, testNow))
	s.AddReading(airquality.NewReading("lhr-2", "Lahore", 210.7, testNow))
	s.AddReading(airquality.NewReading("isb-1", "Islamabad", 30.0, testNow))
	return s
}

type fixture struct {
	clock   *clockwork.FakeClock
	primary *scriptedProvider
	svc     *airquality.Service
}

// newFixture builds a service over a healthy primary. withSample adds the
// sample dataset as fallback.
func newFixture(withSample bool) *fixture {
	f := &fixture{
		clock:   clockwork.NewFakeClockAt(testNow),
		primary: &scriptedProvider{snap: threeStations()},
	}
	cfg := airquality.ServiceConfig{
		Provider: f.primary,
		Logger:   zerolog.Nop(),
		Clock:    f.clock,
	}
	if withSample {
		cfg.Fallback = airquality.NewSampleProvider(airquality.SampleProviderConfig{Clock: f.clock})
	}
	f.svc = airquality.NewService(cfg)
	return f
}

func (f *fixture) source(t *testing.T) string {
	t.Helper()
	snap, err := f.svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	return snap.Source
}

func TestService_CachesUntilTTL(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	first, err := f.svc.GetSnapshot(ctx)
	require.NoError(t, err)
	second, err := f.svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, f.primary.calls.Load())

	f.clock.Advance(airquality.DefaultCacheTTL - time.Second)
	_, err = f.svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.primary.calls.Load())

	f.clock.Advance(time.Second)
	_, err = f.svc.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.primary.calls.Load())
}

func TestService_FailureLadder(t *testing.T) {
	tests := []struct {
		name       string
		warm       bool
		advance    time.Duration
		withSample bool
		wantSource string
		wantErr    error
	}{
		{name: "recent snapshot is served stale", warm: true, advance: 10 * time.Minute, withSample: true, wantSource: "openaq"},
		{name: "old snapshot falls back to sample", warm: true, advance: 45 * time.Minute, withSample: true, wantSource: airquality.SampleSource},
		{name: "cold cache falls back to sample", withSample: true, wantSource: airquality.SampleSource},
		{name: "no fallback configured", wantErr: airquality.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.withSample)
			if tt.warm {
				require.Equal(t, "openaq", f.source(t))
			}
			f.primary.setFailing(true)
			f.clock.Advance(tt.advance)

			snap, err := f.svc.GetSnapshot(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, snap.Source)
			assert.Equal(t, tt.wantSource == airquality.SampleSource, f.svc.CacheStatus().IsFallback)
			assert.Equal(t, tt.wantSource == airquality.SampleSource, snap.IsSample())
		})
	}
}

func TestService_FallbackIsNotReusedAsStale(t *testing.T) {
	f := newFixture(true)
	f.primary.setFailing(true)
	require.Equal(t, airquality.SampleSource, f.source(t))

	f.clock.Advance(airquality.DefaultCacheTTL)
	require.Equal(t, airquality.SampleSource, f.source(t))
	assert.EqualValues(t, 2, f.primary.calls.Load(), "primary is retried once the fallback expires")

	f.primary.setFailing(false)
	f.clock.Advance(airquality.DefaultCacheTTL)
	assert.Equal(t, "openaq", f.source(t))
	assert.False(t, f.svc.CacheStatus().IsFallback)
}

func TestService_RefreshSnapshot(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	require.Equal(t, "openaq", f.source(t))

	require.NoError(t, f.svc.RefreshSnapshot(ctx))
	assert.EqualValues(t, 2, f.primary.calls.Load(), "refresh ignores a fresh cache")

	f.primary.setFailing(true)
	require.NoError(t, f.svc.RefreshSnapshot(ctx))
	assert.Equal(t, "openaq", f.svc.CacheStatus().Source, "failed refresh keeps the stale snapshot")
}

func TestService_CacheStatus(t *testing.T) {
	f := newFixture(false)
	assert.Equal(t, airquality.CacheStatus{}, f.svc.CacheStatus())

	f.source(t)
	status := f.svc.CacheStatus()
	assert.True(t, status.HasData)
	assert.Equal(t, 3, status.StationCount)
	assert.True(t, status.FetchedAt.Equal(testNow))
	assert.True(t, status.ExpiresAt.Equal(testNow.Add(airquality.DefaultCacheTTL)))
	assert.False(t, status.IsExpired)
	assert.False(t, status.IsStale)

	f.clock.Advance(airquality.DefaultStaleIfErrorTTL + time.Minute)
	status = f.svc.CacheStatus()
	assert.True(t, status.IsExpired)
	assert.True(t, status.IsStale)

	f.svc.InvalidateCache()
	assert.False(t, f.svc.CacheStatus().HasData)
	f.source(t)
	assert.EqualValues(t, 2, f.primary.calls.Load())
}

func TestService_CityReadings_KeepsWorstStation(t *testing.T) {
	f := newFixture(false)

	readings, err := f.svc.CityReadings(context.Background())
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "Islamabad", readings[0].City)
	assert.Equal(t, "Lahore", readings[1].City)
	assert.Equal(t, "lhr-2", readings[1].StationID)
	assert.Equal(t, airquality.AQIFromPM25(210.7), readings[1].AQI)
}

func TestService_CurrentReadings_FilterByCity(t *testing.T) {
	f := newFixture(false)

	readings, source, err := f.svc.CurrentReadings(context.Background(), "  lahore ")
	require.NoError(t, err)
	assert.Equal(t, "openaq", source)
	require.Len(t, readings, 2)
	for _, r := range readings {
		assert.Equal(t, "Lahore", r.City)
	}
}

func TestService_GetStation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	station, reading, err := f.svc.GetStation(ctx, "isb-1")
	require.NoError(t, err)
	assert.Equal(t, "Islamabad F-9", station.Name)
	assert.Equal(t, 30.0, reading.PM25)

	_, _, err = f.svc.GetStation(ctx, "unknown")
	assert.ErrorIs(t, err, airquality.ErrStationNotFound)

	stations, err := f.svc.GetStations(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, 3)
}

func TestService_ConcurrentMissesShareOneFetch(t *testing.T) {
	f := newFixture(false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GetSnapshot(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.primary.calls.Load())
}
