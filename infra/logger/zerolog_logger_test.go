package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetSetup(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		require.NoError(t, Setup("info", "", os.Stdout))
	})
}

func TestZerologLoggerMethods(t *testing.T) {
	resetSetup(t)
	t.Setenv("APP_ENV", "dev")
	l := New("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestJSONOutputCarriesComponent(t *testing.T) {
	resetSetup(t)
	var buf bytes.Buffer
	require.NoError(t, Setup("debug", FormatJSON, &buf))
	New("engine").Debugw("tick", map[string]any{"seq": 3})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "tick", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.EqualValues(t, 3, line["seq"])
}

func TestLevelFilters(t *testing.T) {
	resetSetup(t)
	var buf bytes.Buffer
	require.NoError(t, Setup("warn", FormatJSON, &buf))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	l := New("api")
	l.Infof("hidden")
	l.Warnf("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestConsoleFormat(t *testing.T) {
	resetSetup(t)
	var buf bytes.Buffer
	require.NoError(t, Setup("info", FormatConsole, &buf))
	New("mqtt").Infof("connected")
	assert.True(t, strings.Contains(buf.String(), "connected"))
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestSetupRejectsBadValues(t *testing.T) {
	resetSetup(t)
	assert.Error(t, Setup("loud", "", nil))
	assert.Error(t, Setup("info", "xml", nil))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infof("nothing")
}
