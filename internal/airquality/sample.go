package airquality

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/jonboulle/clockwork"
)

// SampleSource labels snapshots produced from the built-in sample dataset.
const SampleSource = "pakistan_cities_sample"

// RandomSource draws bounded random integers. *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// SampleCity describes one city of the sample dataset and its plausible PM2.5 range.
type SampleCity struct {
	City        string
	StationID   string
	StationName string
	Lat         float64
	Lon         float64
	MinPM25     int
	MaxPM25     int
}

// DefaultSampleCities returns the built-in dataset of major Pakistani cities.
func DefaultSampleCities() []SampleCity {
	return []SampleCity{
		{City: "Islamabad", StationID: "islamabad-1", StationName: "Islamabad Central", Lat: 33.6844, Lon: 73.0479, MinPM25: 35, MaxPM25: 85},
		{City: "Lahore", StationID: "lahore-1", StationName: "Lahore Air Quality", Lat: 31.5204, Lon: 74.3587, MinPM25: 150, MaxPM25: 300},
		{City: "Karachi", StationID: "karachi-1", StationName: "Karachi Coastal", Lat: 24.8607, Lon: 67.0011, MinPM25: 80, MaxPM25: 180},
		{City: "Rawalpindi", StationID: "rawalpindi-1", StationName: "Rawalpindi Station", Lat: 33.6007, Lon: 73.0679, MinPM25: 40, MaxPM25: 90},
		{City: "Faisalabad", StationID: "faisalabad-1", StationName: "Faisalabad Industrial", Lat: 31.4504, Lon: 73.1350, MinPM25: 120, MaxPM25: 250},
		{City: "Peshawar", StationID: "peshawar-1", StationName: "Peshawar City", Lat: 34.0151, Lon: 71.5249, MinPM25: 90, MaxPM25: 200},
		{City: "Quetta", StationID: "quetta-1", StationName: "Quetta Valley", Lat: 30.1798, Lon: 66.9750, MinPM25: 50, MaxPM25: 120},
		{City: "Multan", StationID: "multan-1", StationName: "Multan City", Lat: 30.1575, Lon: 71.5249, MinPM25: 100, MaxPM25: 220},
		{City: "Gujranwala", StationID: "gujranwala-1", StationName: "Gujranwala Station", Lat: 32.1877, Lon: 74.1945, MinPM25: 110, MaxPM25: 240},
		{City: "Sialkot", StationID: "sialkot-1", StationName: "Sialkot City", Lat: 32.4945, Lon: 74.5229, MinPM25: 80, MaxPM25: 170},
	}
}

// SampleProviderConfig holds configuration for the sample provider.
type SampleProviderConfig struct {
	// Cities is the dataset to draw from (default: DefaultSampleCities).
	Cities []SampleCity

	// Random draws the concentrations (default: math/rand/v2 global source).
	Random RandomSource

	// Clock stamps readings (default: real clock).
	Clock clockwork.Clock
}

// SampleProvider produces plausible readings for a fixed set of cities.
// It never fails, so it backs the readings service when the live provider is down.
type SampleProvider struct {
	cities []SampleCity
	clock  clockwork.Clock

	mu     sync.Mutex
	random RandomSource
}

// NewSampleProvider creates a new sample provider.
func NewSampleProvider(cfg SampleProviderConfig) *SampleProvider {
	cities := cfg.Cities
	if len(cities) == 0 {
		cities = DefaultSampleCities()
	}
	random := cfg.Random
	if random == nil {
		random = globalRandom{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &SampleProvider{
		cities: cities,
		clock:  clock,
		random: random,
	}
}

// Name identifies this provider.
func (p *SampleProvider) Name() string {
	return SampleSource
}

// FetchSnapshot draws one reading per sample city.
func (p *SampleProvider) FetchSnapshot(_ context.Context) (*Snapshot, error) {
	now := p.clock.Now().UTC()
	snapshot := NewSnapshot(SampleSource, now)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.cities {
		snapshot.Stations[c.StationID] = &Station{
			ID:        c.StationID,
			Name:      c.StationName,
			City:      c.City,
			Lat:       c.Lat,
			Lon:       c.Lon,
			UpdatedAt: now,
		}
		snapshot.AddReading(NewReading(c.StationID, c.City, float64(p.drawPM25(c)), now))
	}

	return snapshot, nil
}

// drawPM25 returns an integer in [MinPM25, MaxPM25].
func (p *SampleProvider) drawPM25(c SampleCity) int {
	span := c.MaxPM25 - c.MinPM25
	if span <= 0 {
		return c.MinPM25
	}
	return c.MinPM25 + p.random.IntN(span+1)
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }
