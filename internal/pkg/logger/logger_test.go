package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_WritesJSONWithServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{App: "payroll-engine", Version: "v1", Env: "production", Level: "info"})

	log.Debug("hidden")
	log.Info("payroll generated", "company_id", "company-1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "payroll-engine", entry["app"])
	assert.Equal(t, "company-1", entry["company_id"])
	assert.NotContains(t, buf.String(), "hidden")
}
