package logger_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]logger.LogLevel{
		"debug":   logger.DebugLevel,
		"info":    logger.InfoLevel,
		"warning": logger.WarnLevel,
		"warn":    logger.WarnLevel,
		"error":   logger.ErrorLevel,
	} {
		got, err := logger.ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := logger.ParseLevel("loud")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.WarnLevel)

	log.Debug().Msg("hidden")
	log.Info().Msg("hidden")
	log.Warn().Str("disk", "sda").Msg("visible")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "sda", entry["disk"])
	assert.Equal(t, "visible", entry["message"])
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.DebugLevel)

	log.ErrorWithCode(errors.New().Wrap(errors.ErrReadConfig, io.EOF)).Msg("config")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "read_config_failed", entry["error_code"])
	assert.Equal(t, "EOF", entry["error"])
}

func TestNopDiscards(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() {
		log.Error().Int("n", 1).Msg("nothing")
		log.Debug().Send()
	})
}
