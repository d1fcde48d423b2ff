package app_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanairpk/cleanair/internal/app"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := app.NewLogger(&buf, "cleanair-worker", "1.2.3", zerolog.WarnLevel)

	log.Info().Msg("dropped")
	log.Warn().Str("city", "Lahore").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "cleanair-worker", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "Lahore", entry["city"])
	assert.Contains(t, entry, "time")
}
