package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", false)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("project", "api").Msg("pm2 unavailable")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "api", line["project"])
	assert.Equal(t, "pm2 unavailable", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewLoggerPretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "INFO", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Info().Msg("server listening")
	assert.Contains(t, buf.String(), "[INFO]")
	assert.Contains(t, buf.String(), "server listening")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}
