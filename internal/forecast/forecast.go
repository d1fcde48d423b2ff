// Package forecast produces short-horizon PM2.5 forecasts from per-city
// baselines with a diurnal pattern, a slow upward trend and bounded noise.
package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/alert"
)

// Horizon limits.
const (
	DefaultHours = 48
	MaxHours     = 168

	// MinPM25 is the floor applied to every forecast value.
	MinPM25 = 10.0
)

// Validation errors.
var (
	ErrCityRequired   = errors.New("city is required")
	ErrInvalidHorizon = errors.New("hours must be between 1 and 168")
)

// NoiseSource returns a multiplicative noise factor in [0.9, 1.1].
type NoiseSource interface {
	Noise() float64
}

// FixedNoise always returns the same factor.
type FixedNoise float64

// Noise returns the fixed factor.
func (f FixedNoise) Noise() float64 { return float64(f) }

// UniformNoise draws factors uniformly from [0.9, 1.1].
type UniformNoise struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewUniformNoise creates a noise source. A nil rnd uses the global generator.
func NewUniformNoise(rnd *rand.Rand) *UniformNoise {
	return &UniformNoise{rnd: rnd}
}

// Noise draws one factor.
func (u *UniformNoise) Noise() float64 {
	var f float64
	if u.rnd == nil {
		f = rand.Float64()
	} else {
		u.mu.Lock()
		f = u.rnd.Float64()
		u.mu.Unlock()
	}
	return 0.9 + f*0.2
}

// Config holds the immutable per-city baselines.
type Config struct {
	// Baselines maps lower-case city name to typical PM2.5 in µg/m³.
	Baselines map[string]float64

	// DefaultBaseline is used for cities not in Baselines.
	DefaultBaseline float64
}

// DefaultConfig returns the baselines for the major Pakistani cities.
func DefaultConfig() Config {
	return Config{
		Baselines: map[string]float64{
			"islamabad":  45,
			"lahore":     180,
			"karachi":    85,
			"rawalpindi": 55,
			"faisalabad": 120,
		},
		DefaultBaseline: 75,
	}
}

// Point is one hourly forecast value in concentration units.
type Point struct {
	Timestamp       time.Time
	PM25            float64
	ConfidenceLower float64
	ConfidenceUpper float64
}

// LabeledPoint is a Point with its AQI attached.
type LabeledPoint struct {
	Point
	AQI      int
	Category airquality.Category
}

// Forecast is a labeled forecast for one city.
type Forecast struct {
	City        string
	Hours       int
	GeneratedAt time.Time
	Points      []LabeledPoint
}

// Generator produces forecasts. It holds no mutable state besides its
// noise source and is safe for concurrent use.
type Generator struct {
	baselines       map[string]float64
	defaultBaseline float64
	clock           clockwork.Clock
	noise           NoiseSource
}

// NewGenerator creates a generator. Nil clock and noise default to the real
// clock and uniform noise.
func NewGenerator(cfg Config, clock clockwork.Clock, noise NoiseSource) *Generator {
	baselines := make(map[string]float64, len(cfg.Baselines))
	for city, v := range cfg.Baselines {
		baselines[airquality.NormalizeCity(city)] = v
	}
	defaultBaseline := cfg.DefaultBaseline
	if defaultBaseline <= 0 {
		defaultBaseline = 75
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if noise == nil {
		noise = NewUniformNoise(nil)
	}
	return &Generator{
		baselines:       baselines,
		defaultBaseline: defaultBaseline,
		clock:           clock,
		noise:           noise,
	}
}

// Baseline returns the baseline for a city (case-insensitive).
func (g *Generator) Baseline(city string) float64 {
	if v, ok := g.baselines[airquality.NormalizeCity(city)]; ok {
		return v
	}
	return g.defaultBaseline
}

// Generate returns exactly hours points at 1-hour steps starting now.
func (g *Generator) Generate(city string, hours int) ([]Point, error) {
	if strings.TrimSpace(city) == "" {
		return nil, ErrCityRequired
	}
	if hours < 1 || hours > MaxHours {
		return nil, ErrInvalidHorizon
	}

	base := g.Baseline(city)
	now := g.clock.Now().UTC()
	points := make([]Point, 0, hours)

	for i := 0; i < hours; i++ {
		ts := now.Add(time.Duration(i) * time.Hour)
		trend := 1 + float64(i)*0.005
		value := math.Max(MinPM25, base*airquality.DiurnalMultiplier(ts)*trend*g.noise.Noise())
		points = append(points, Point{
			Timestamp:       ts,
			PM25:            value,
			ConfidenceLower: value * 0.8,
			ConfidenceUpper: value * 1.2,
		})
	}

	return points, nil
}

// Forecast generates points and labels each with its AQI.
func (g *Generator) Forecast(city string, hours int) (*Forecast, error) {
	points, err := g.Generate(city, hours)
	if err != nil {
		return nil, err
	}

	labeled := make([]LabeledPoint, len(points))
	for i, p := range points {
		aqi := airquality.AQIFromPM25(p.PM25)
		labeled[i] = LabeledPoint{Point: p, AQI: aqi, Category: airquality.CategoryFor(aqi)}
	}

	generatedAt := g.clock.Now().UTC()
	if len(points) > 0 {
		generatedAt = points[0].Timestamp
	}

	return &Forecast{
		City:        strings.TrimSpace(city),
		Hours:       hours,
		GeneratedAt: generatedAt,
		Points:      labeled,
	}, nil
}

// PeakReading returns the highest-AQI point as an alert reading flagged as
// a forecast. ok is false for an empty series.
func PeakReading(city string, points []Point) (alert.Reading, bool) {
	if len(points) == 0 {
		return alert.Reading{}, false
	}
	peak := points[0]
	for _, p := range points[1:] {
		if p.PM25 > peak.PM25 {
			peak = p
		}
	}
	return alert.Reading{
		City:       city,
		AQI:        airquality.AQIFromPM25(peak.PM25),
		ObservedAt: peak.Timestamp,
		Forecast:   true,
	}, true
}

// PredictedReadings returns a readings source yielding the forecast peak of
// every currently observed city over the next hours.
func PredictedReadings(g *Generator, cities alert.CityReader, hours int) alert.ReadingsSource {
	return alert.ReadingsSourceFunc(func(ctx context.Context) ([]alert.Reading, error) {
		current, err := cities.CityReadings(ctx)
		if err != nil {
			return nil, err
		}
		readings := make([]alert.Reading, 0, len(current))
		for _, c := range current {
			points, err := g.Generate(c.City, hours)
			if err != nil {
				return nil, err
			}
			if r, ok := PeakReading(c.City, points); ok {
				readings = append(readings, r)
			}
		}
		return readings, nil
	})
}
