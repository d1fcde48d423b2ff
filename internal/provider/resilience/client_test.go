package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/provider/resilience"
)

// upstream answers with statuses in order, repeating the last one.
type upstream struct {
	statuses []int
	calls    atomic.Int32
	apiKeys  chan string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(u.calls.Add(1))
	if u.apiKeys != nil {
		u.apiKeys <- r.Header.Get("X-API-Key")
	}
	status := u.statuses[len(u.statuses)-1]
	if n <= len(u.statuses) {
		status = u.statuses[n-1]
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"results":[]}`))
}

func fastConfig(name string) resilience.ClientConfig {
	cfg := resilience.DefaultClientConfig(name)
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	// Keep the circuit closed unless a test asks otherwise.
	cfg.Breaker.MinRequests = 100
	return cfg
}

func get(t *testing.T, c *resilience.Client, url string, header ...string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.Do(req)
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("openaq")

	assert.Equal(t, "openaq", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, resilience.DefaultBreakerConfig(), cfg.Breaker)
}

func TestClient_InjectsHeaders(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusOK}, apiKeys: make(chan string, 2)}
	server := httptest.NewServer(up)
	defer server.Close()

	cfg := fastConfig("openaq")
	cfg.Headers = map[string]string{"X-API-Key": "configured"}
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "configured", <-up.apiKeys)

	resp, err = get(t, client, server.URL, "X-API-Key", "per-request")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "per-request", <-up.apiKeys, "request headers win")
}

func TestClient_RetriesTransientStatuses(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK}}
	server := httptest.NewServer(up)
	defer server.Close()

	resp, err := get(t, resilience.NewClient(fastConfig("openaq")), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), up.calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusUnauthorized}}
	server := httptest.NewServer(up)
	defer server.Close()

	resp, err := get(t, resilience.NewClient(fastConfig("openaq")), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestClient_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusBadGateway}}
	server := httptest.NewServer(up)
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := fastConfig("openaq")
	cfg.MaxRetries = 2
	cfg.Registry = registry

	resp, err := get(t, resilience.NewClient(cfg), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), up.calls.Load(), "one call plus two retries")

	health, ok := registry.Health("openaq")
	require.True(t, ok)
	assert.Equal(t, "provider returned 502 Bad Gateway", health.LastError)
	assert.False(t, health.LastFailure.IsZero())
	assert.True(t, health.LastSuccess.IsZero())
}

func TestClient_CircuitOpensAndFailsFast(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusInternalServerError}}
	server := httptest.NewServer(up)
	defer server.Close()

	cfg := fastConfig("openaq")
	cfg.MaxRetries = 1
	cfg.Breaker = resilience.BreakerConfig{MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Hour}
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateOpen, client.State())

	resp, err = get(t, client, server.URL)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Nil(t, resp)
	assert.Equal(t, int32(2), up.calls.Load(), "no call while open")
}

func TestClient_CancelledContext(t *testing.T) {
	up := &upstream{statuses: []int{http.StatusOK}}
	server := httptest.NewServer(up)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := resilience.NewClient(fastConfig("openaq")).Do(req)
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, up.calls.Load())
}

func TestBreakerConfig_ShouldTrip(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig()

	assert.False(t, cfg.ShouldTrip(gobreaker.Counts{Requests: 4, TotalFailures: 4}), "below sample size")
	assert.False(t, cfg.ShouldTrip(gobreaker.Counts{Requests: 10, TotalFailures: 4}))
	assert.True(t, cfg.ShouldTrip(gobreaker.Counts{Requests: 10, TotalFailures: 5}))
}
