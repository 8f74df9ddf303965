package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probewatch/probewatch/internal/logging"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{
		Level:       "info",
		Environment: "production",
		Service:     "probewatch",
		Version:     "1.2.3",
		Output:      &buf,
	})

	log.Info().Str("probe", "homepage").Msg("executing probe")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probewatch", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "homepage", entry["probe"])
	assert.Equal(t, "executing probe", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "WARN", Environment: "production", Output: &buf})

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNew_UnknownLevelDefaultsToDebug(t *testing.T) {
	log := logging.New(logging.Config{Level: "chatty", Environment: "production", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log = logging.New(logging.Config{Environment: "production", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNew_DevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Environment: "development", Output: &buf})

	log.Info().Msg("starting probewatch")

	assert.Contains(t, buf.String(), "starting probewatch")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestIsProduction(t *testing.T) {
	assert.True(t, logging.IsProduction("production"))
	assert.True(t, logging.IsProduction("Production"))
	assert.False(t, logging.IsProduction("development"))
	assert.False(t, logging.IsProduction(""))
}
