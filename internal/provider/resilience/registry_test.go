package resilience_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/provider/resilience"
)

func TestRegistry_TracksClients(t *testing.T) {
	registry := resilience.NewRegistry()

	for _, name := range []string{"openaq", "airnow", "openaq"} {
		cfg := fastConfig(name)
		cfg.Registry = registry
		resilience.NewClient(cfg)
	}

	all := registry.All()
	require.Len(t, all, 2, "re-registering a name replaces it")
	assert.Equal(t, "airnow", all[0].Name)
	assert.Equal(t, "openaq", all[1].Name)
	assert.Equal(t, gobreaker.StateClosed, all[1].State)

	_, ok := registry.Health("purpleair")
	assert.False(t, ok)
}

func TestRegistry_StampsOutcomesWithClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	registry := resilience.NewRegistryWithClock(clock)

	ok := &upstream{statuses: []int{http.StatusOK}}
	okServer := httptest.NewServer(ok)
	defer okServer.Close()
	down := &upstream{statuses: []int{http.StatusServiceUnavailable}}
	downServer := httptest.NewServer(down)
	defer downServer.Close()

	cfg := fastConfig("openaq")
	cfg.MaxRetries = 1
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, okServer.URL)
	require.NoError(t, err)
	resp.Body.Close()

	clock.Advance(15 * time.Minute)
	resp, err = get(t, client, downServer.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health, found := registry.Health("openaq")
	require.True(t, found)
	assert.True(t, health.LastSuccess.Equal(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)))
	assert.True(t, health.LastFailure.Equal(time.Date(2025, 1, 15, 9, 15, 0, 0, time.UTC)))
	assert.Equal(t, "provider returned 503 Service Unavailable", health.LastError)
	assert.Equal(t, uint32(3), health.Counts.Requests)
	assert.Equal(t, uint32(2), health.Counts.TotalFailures)
}

func TestStatusError(t *testing.T) {
	var err error = &resilience.StatusError{StatusCode: http.StatusTooManyRequests}

	var statusErr *resilience.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "provider returned 429 Too Many Requests", err.Error())
}
