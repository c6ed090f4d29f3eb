package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CamposServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Env: "production", Level: "debug", Service: "stock-ledger", Output: &buf})

	log.Named("engine").Info().Str("movement_id", "m-1").Msg("movimiento registrado")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stock-ledger", entry["service"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "m-1", entry["movement_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_FiltraPorNivel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("descartado")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("ruidoso"))
}
