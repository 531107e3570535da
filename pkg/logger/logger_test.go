package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/pkg/logger"
)

func TestNew_JSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Out: &buf})

	l.Info().Msg("dropped")
	l.Warn().Str("source", "a.pdf").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "a.pdf", entry["source"])
	assert.Equal(t, "kept", entry["message"])
}

func TestFrom_KeepsFields(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.Config{Level: "debug", Out: &buf})
	sub := logger.From(base.With().Str("format", "xml").Logger())

	sub.Debug().Msg("extracted")
	assert.Contains(t, buf.String(), `"format":"xml"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("verbose"))
}
