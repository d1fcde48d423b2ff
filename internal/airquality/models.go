// Package airquality provides PM2.5 readings, AQI conversion and a cached readings service.
package airquality

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Provider errors.
var (
	ErrStationNotFound     = errors.New("station not found")
	ErrNoReadings          = errors.New("no readings available")
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
)

// Pollutant represents an air quality pollutant type.
type Pollutant string

// PollutantPM25 is the only pollutant the engine converts to AQI.
const PollutantPM25 Pollutant = "PM25"

// UnitMicrogramsPerCubicMeter is the unit of all PM2.5 concentrations.
const UnitMicrogramsPerCubicMeter = "µg/m³"

// Station represents an air quality monitoring station.
type Station struct {
	ID        string
	Name      string
	City      string
	Lat       float64
	Lon       float64
	UpdatedAt time.Time
}

// Reading is a PM2.5 concentration observed at a station.
// AQI is derived from PM25 when the reading is built and never set independently.
type Reading struct {
	StationID  string
	City       string
	Pollutant  Pollutant
	PM25       float64
	AQI        int
	ObservedAt time.Time
}

// NewReading creates a reading with its AQI computed from the concentration.
func NewReading(stationID, city string, pm25 float64, observedAt time.Time) *Reading {
	return &Reading{
		StationID:  stationID,
		City:       city,
		Pollutant:  PollutantPM25,
		PM25:       pm25,
		AQI:        AQIFromPM25(pm25),
		ObservedAt: observedAt,
	}
}

// CityReading is the worst current reading for a city.
type CityReading struct {
	City       string
	StationID  string
	PM25       float64
	AQI        int
	ObservedAt time.Time
}

// Snapshot represents a point-in-time set of stations and their latest readings.
type Snapshot struct {
	// Stations is a map of station ID to station metadata.
	Stations map[string]*Station

	// Readings holds the latest reading per station, keyed by station ID.
	Readings map[string]*Reading

	// FetchedAt is when this snapshot was retrieved.
	FetchedAt time.Time

	// Source identifies where the data came from (provider name or sample label).
	Source string
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot(source string, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Stations:  make(map[string]*Station),
		Readings:  make(map[string]*Reading),
		FetchedAt: fetchedAt,
		Source:    source,
	}
}

// AddReading stores a reading, keeping the most recent one per station.
func (s *Snapshot) AddReading(r *Reading) {
	if existing, ok := s.Readings[r.StationID]; ok && existing.ObservedAt.After(r.ObservedAt) {
		return
	}
	s.Readings[r.StationID] = r
}

// StationList returns all stations ordered by ID.
func (s *Snapshot) StationList() []*Station {
	stations := make([]*Station, 0, len(s.Stations))
	for _, station := range s.Stations {
		stations = append(stations, station)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	return stations
}

// ReadingList returns readings ordered by city then station, optionally
// filtered to one city (case-insensitive).
func (s *Snapshot) ReadingList(city string) []*Reading {
	readings := make([]*Reading, 0, len(s.Readings))
	for _, r := range s.Readings {
		if city != "" && !SameCity(r.City, city) {
			continue
		}
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool {
		if readings[i].City != readings[j].City {
			return readings[i].City < readings[j].City
		}
		return readings[i].StationID < readings[j].StationID
	})
	return readings
}

// IsSample reports whether the snapshot came from the built-in sample dataset.
func (s *Snapshot) IsSample() bool {
	return s.Source == SampleSource
}

// CityReadings collapses station readings to one per city, keeping the highest AQI.
func (s *Snapshot) CityReadings() []CityReading {
	byCity := make(map[string]CityReading)
	for _, r := range s.ReadingList("") {
		if r.City == "" {
			continue
		}
		key := NormalizeCity(r.City)
		if existing, ok := byCity[key]; ok && existing.AQI >= r.AQI {
			continue
		}
		byCity[key] = CityReading{
			City:       r.City,
			StationID:  r.StationID,
			PM25:       r.PM25,
			AQI:        r.AQI,
			ObservedAt: r.ObservedAt,
		}
	}

	out := make([]CityReading, 0, len(byCity))
	for _, cr := range byCity {
		out = append(out, cr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

// NormalizeCity returns the comparison key for a city name.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// SameCity reports whether two city names refer to the same city.
func SameCity(a, b string) bool {
	return NormalizeCity(a) == NormalizeCity(b)
}
