// Package openaq provides a readings provider backed by the OpenAQ v2 API.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/cleanairpk/cleanair/internal/airquality"
	"github.com/cleanairpk/cleanair/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ v2 API.
	DefaultBaseURL = "https://api.openaq.org/v2"

	// ProviderName identifies this provider and labels its snapshots.
	ProviderName = "openaq"

	// DefaultCountry restricts results to Pakistan.
	DefaultCountry = "PK"

	// DefaultLimit is the page size requested from /latest.
	DefaultLimit = 100

	apiKeyHeader = "X-API-Key"
)

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// Country is the ISO country code filter (defaults to PK).
	Country string

	// City optionally narrows results to one city.
	City string

	// Limit is the maximum number of locations requested (defaults to 100).
	Limit int

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Registry receives the default resilient client for health reporting.
	Registry *resilience.Registry

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Logger receives circuit breaker transitions of the default client.
	Logger zerolog.Logger

	Clock clockwork.Clock
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ API client.
type Client struct {
	baseURL    string
	apiKey     string
	country    string
	city       string
	limit      int
	httpClient HTTPDoer
	clock      clockwork.Clock
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	country := cfg.Country
	if country == "" {
		country = DefaultCountry
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = timeout
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		country:    country,
		city:       cfg.City,
		limit:      limit,
		httpClient: httpClient,
		clock:      clock,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from OpenAQ v2 /latest).

type latestResponse struct {
	Results []locationResult `json:"results"`
}

type locationResult struct {
	Location     string        `json:"location"`
	City         *string       `json:"city"`
	Country      string        `json:"country"`
	Coordinates  *coordinates  `json:"coordinates"`
	Measurements []measurement `json:"measurements"`
}

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type measurement struct {
	Parameter   string  `json:"parameter"`
	Value       float64 `json:"value"`
	LastUpdated string  `json:"lastUpdated"`
	Unit        string  `json:"unit"`
}

// FetchSnapshot retrieves the latest PM2.5 value of every location in the country.
// Any non-200 response is an error so the readings service can fall back.
func (c *Client) FetchSnapshot(ctx context.Context) (*airquality.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.latestURL(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from latest endpoint", resp.StatusCode)
	}

	var result latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode latest response: %w", err)
	}

	now := c.clock.Now().UTC()
	snapshot := airquality.NewSnapshot(ProviderName, now)
	for i := range result.Results {
		station, reading := toReading(&result.Results[i], now)
		if reading == nil {
			continue
		}
		snapshot.Stations[station.ID] = station
		snapshot.AddReading(reading)
	}

	return snapshot, nil
}

func (c *Client) latestURL() string {
	q := url.Values{}
	q.Set("country", c.country)
	q.Set("parameter", "pm25")
	q.Set("limit", strconv.Itoa(c.limit))
	if c.city != "" {
		q.Set("city", c.city)
	}
	return c.baseURL + "/latest?" + q.Encode()
}

// toReading converts one location to a station and its PM2.5 reading.
// Locations without a PM2.5 measurement yield a nil reading.
func toReading(r *locationResult, now time.Time) (*airquality.Station, *airquality.Reading) {
	var pm25 *measurement
	for i := range r.Measurements {
		if strings.EqualFold(r.Measurements[i].Parameter, "pm25") {
			pm25 = &r.Measurements[i]
			break
		}
	}
	if pm25 == nil || r.Location == "" || pm25.Value < 0 {
		return nil, nil
	}

	// City-less locations keep an empty city so they never group into a city alert.
	var city string
	if r.City != nil {
		city = strings.TrimSpace(*r.City)
	}

	observedAt, err := time.Parse(time.RFC3339, pm25.LastUpdated)
	if err != nil {
		observedAt = now
	}

	station := &airquality.Station{
		ID:        r.Location,
		Name:      r.Location,
		City:      city,
		UpdatedAt: observedAt.UTC(),
	}
	if r.Coordinates != nil {
		station.Lat = r.Coordinates.Latitude
		station.Lon = r.Coordinates.Longitude
	}

	return station, airquality.NewReading(station.ID, city, pm25.Value, observedAt.UTC())
}
