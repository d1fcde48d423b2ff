package app

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the JSON logger shared by the binaries. Every event
// carries the service name and build version.
func NewLogger(w io.Writer, service, version string, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}
