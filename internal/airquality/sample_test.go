package airquality_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

// fixedRandom always returns the same offset, clamped to the range.
type fixedRandom struct{ n int }

func (f fixedRandom) IntN(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

// fixedFloat always returns the same value.
type fixedFloat float64

func (f fixedFloat) Float64() float64 { return float64(f) }

func TestSampleProvider_FetchSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	provider := airquality.NewSampleProvider(airquality.SampleProviderConfig{
		Random: rand.New(rand.NewPCG(1, 2)),
		Clock:  clock,
	})

	snapshot, err := provider.FetchSnapshot(context.Background())
	require.NoError(t, err)

	cities := airquality.DefaultSampleCities()
	assert.Equal(t, airquality.SampleSource, snapshot.Source)
	assert.Len(t, snapshot.Stations, len(cities))
	assert.Len(t, snapshot.Readings, len(cities))
	assert.Equal(t, testNow, snapshot.FetchedAt)

	for _, c := range cities {
		r, ok := snapshot.Readings[c.StationID]
		require.True(t, ok, c.StationID)
		assert.Equal(t, c.City, r.City)
		assert.GreaterOrEqual(t, r.PM25, float64(c.MinPM25))
		assert.LessOrEqual(t, r.PM25, float64(c.MaxPM25))
		// AQI is computed eagerly, never left unset.
		assert.Equal(t, airquality.AQIFromPM25(r.PM25), r.AQI)
		assert.Positive(t, r.AQI)
	}
}

func TestSampleProvider_InjectedRandomIsReproducible(t *testing.T) {
	provider := airquality.NewSampleProvider(airquality.SampleProviderConfig{
		Random: fixedRandom{n: 0},
		Clock:  clockwork.NewFakeClockAt(testNow),
	})

	snapshot, err := provider.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150.0, snapshot.Readings["lahore-1"].PM25)
	assert.Equal(t, 199, snapshot.Readings["lahore-1"].AQI)
	assert.Equal(t, 35.0, snapshot.Readings["islamabad-1"].PM25)
}

func TestSampleProvider_UpperBoundInclusive(t *testing.T) {
	provider := airquality.NewSampleProvider(airquality.SampleProviderConfig{
		Cities: []airquality.SampleCity{{City: "Lahore", StationID: "lahore-1", MinPM25: 150, MaxPM25: 300}},
		Random: fixedRandom{n: 1000},
		Clock:  clockwork.NewFakeClockAt(testNow),
	})

	snapshot, err := provider.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300.0, snapshot.Readings["lahore-1"].PM25)
}

func TestHistoryGenerator_Generate(t *testing.T) {
	gen := airquality.NewHistoryGenerator(airquality.HistoryConfig{
		Random: fixedFloat(0.5),
		Clock:  clockwork.NewFakeClockAt(testNow),
	})

	history, err := gen.Generate("lahore-1", 7)
	require.NoError(t, err)
	require.Len(t, history.Points, 7*24)
	assert.Equal(t, "lahore-1", history.StationID)

	first := history.Points[0]
	assert.Equal(t, testNow.Add(-7*24*time.Hour), first.Timestamp)

	for i, p := range history.Points {
		if i > 0 {
			assert.Equal(t, time.Hour, p.Timestamp.Sub(history.Points[i-1].Timestamp))
		}
		// Zero noise with the midpoint draw.
		assert.InDelta(t, 180*airquality.DiurnalMultiplier(p.Timestamp), p.PM25, 1e-9)
		assert.Equal(t, airquality.AQIFromPM25(p.PM25), p.AQI)
	}
}

func TestHistoryGenerator_UnknownStationUsesDefault(t *testing.T) {
	gen := airquality.NewHistoryGenerator(airquality.HistoryConfig{
		Random: fixedFloat(0.5),
		Clock:  clockwork.NewFakeClockAt(testNow),
	})

	history, err := gen.Generate("nowhere-9", 1)
	require.NoError(t, err)
	for _, p := range history.Points {
		assert.InDelta(t, 75*airquality.DiurnalMultiplier(p.Timestamp), p.PM25, 1e-9)
	}
}

func TestHistoryGenerator_NoiseBounded(t *testing.T) {
	gen := airquality.NewHistoryGenerator(airquality.HistoryConfig{
		Clock: clockwork.NewFakeClockAt(testNow),
	})

	history, err := gen.Generate("karachi-1", 3)
	require.NoError(t, err)
	for _, p := range history.Points {
		base := 85 * airquality.DiurnalMultiplier(p.Timestamp)
		assert.GreaterOrEqual(t, p.PM25, base*0.9-1e-9)
		assert.LessOrEqual(t, p.PM25, base*1.1+1e-9)
	}
}

func TestHistoryGenerator_RejectsInvalidRange(t *testing.T) {
	gen := airquality.NewHistoryGenerator(airquality.HistoryConfig{})

	_, err := gen.Generate("lahore-1", 0)
	assert.ErrorIs(t, err, airquality.ErrInvalidHistoryRange)

	_, err = gen.Generate("lahore-1", airquality.MaxHistoryDays+1)
	assert.ErrorIs(t, err, airquality.ErrInvalidHistoryRange)
}

func TestDiurnalMultiplier(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.8, airquality.DiurnalMultiplier(day.Add(5*time.Hour)))
	assert.Equal(t, 1.2, airquality.DiurnalMultiplier(day.Add(6*time.Hour)))
	assert.Equal(t, 1.2, airquality.DiurnalMultiplier(day.Add(20*time.Hour)))
	assert.Equal(t, 0.8, airquality.DiurnalMultiplier(day.Add(21*time.Hour)))
}
