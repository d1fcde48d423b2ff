package resilience

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the provider while its
// circuit is open.
var ErrCircuitOpen = errors.New("provider circuit is open")

// ClientConfig configures a Client. Zero durations and counts take the
// defaults from DefaultClientConfig.
type ClientConfig struct {
	// Name identifies the provider in logs and the Registry.
	Name string

	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Headers are set on every request that does not already carry them.
	Headers map[string]string

	Breaker BreakerConfig

	// Registry, when set, tracks the client's outcomes.
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns the settings used for readings providers.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         DefaultBreakerConfig(),
	}
}

// Client is an HTTP client that retries transient failures with
// exponential backoff behind a circuit breaker.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a client and registers it with cfg.Registry.
func NewClient(cfg ClientConfig) *Client {
	d := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = d.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = d.MaxInterval
	}
	cfg.Breaker = cfg.Breaker.withDefaults()

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker(cfg.Name, cfg.Breaker, cfg.Logger), //nolint:bodyclose // type parameter only
	}
	if cfg.Registry != nil {
		cfg.Registry.track(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.cfg.Name }

// State returns the circuit state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Counts returns the circuit's request counts for the current interval.
func (c *Client) Counts() gobreaker.Counts { return c.breaker.Counts() }

// Do sends req, retrying network errors, 429 and 5xx until MaxRetries is
// spent or req's context ends. When retries run out on a retryable status
// the last response is returned with a nil error so the caller can read
// the body. An open circuit fails fast with ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil && last != resp {
			_ = last.Body.Close()
		}
		last = resp
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to the caller
			return c.send(req)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case err != nil:
			keep(resp)
			c.cfg.Logger.Debug().Err(err).
				Str("provider", c.cfg.Name).
				Int("attempt", attempt).
				Msg("provider request failed")
			return err
		}
		keep(resp)
		return nil
	}, policy)

	if err == nil {
		c.observe(nil)
		return last, nil
	}

	c.observe(err)
	if last != nil && !errors.Is(err, ErrCircuitOpen) {
		return last, nil
	}
	if last != nil {
		_ = last.Body.Close()
	}
	return nil, err
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for k, v := range c.cfg.Headers {
		if out.Header.Get(k) == "" {
			out.Header.Set(k, v)
		}
	}
	resp, err := c.http.Do(out)
	if err != nil {
		return nil, err
	}
	if retryable(resp.StatusCode) {
		return resp, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) observe(err error) {
	if c.cfg.Registry != nil {
		c.cfg.Registry.observe(c.cfg.Name, err)
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// StatusError is a retryable HTTP status returned by a provider.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "provider returned " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}
