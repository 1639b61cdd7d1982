package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel)

	l.WithField("platform", "amazon").
		WithError(errors.New("boom")).
		Warn().
		Msg("fetch failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "amazon", entry["platform"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "fetch failed", entry["message"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.WarnLevel)

	l.Debug().Msg("hidden")
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	l.WithFields(Fields{"tier": "mock"}).Error().Msg("shown")
	assert.Contains(t, buf.String(), `"tier":"mock"`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error().Msg("discarded")
	})
}
