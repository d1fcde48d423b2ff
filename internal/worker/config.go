// Package worker runs background alert evaluation for CleanAir.
package worker

import (
	"time"
)

// Config holds configuration for the alert evaluation job.
type Config struct {
	// Interval is the time between scheduled runs.
	// Default: 15 minutes
	Interval time.Duration

	// Concurrency is the number of users evaluated in parallel.
	// Default: 4
	Concurrency int

	// Timeout bounds the evaluation of a single user.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultConfig returns the default job configuration.
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency < 1 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
