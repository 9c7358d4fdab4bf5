package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("scheduler", &buf)
	l.Warnf("appliance %s has no constraint", "Kettle")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "appliance Kettle has no constraint", entry["message"])
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	require.NoError(t, SetLevel("warn"))
	var buf bytes.Buffer
	l := NewWithWriter("filter", &buf)
	l.Infof("hidden")
	l.Debugw("hidden", map[string]any{"k": 1})
	l.Errorf("shown")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)

	require.NoError(t, SetLevel(""))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Error(t, SetLevel("loud"))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infof("ignored")
}

func TestSetOutput(t *testing.T) {
	defer SetOutput(nil)

	var buf bytes.Buffer
	SetOutput(&buf)
	New("batch").Infof("household %s done", "h1")
	assert.Contains(t, buf.String(), `"component":"batch"`)
	assert.Contains(t, buf.String(), "household h1 done")
}

func TestRotateTo(t *testing.T) {
	defer SetOutput(nil)

	path := filepath.Join(t.TempDir(), "loadshift.log")
	c := RotateTo(path, 1, 2)
	New("service").Warnf("tariff %s missing", "Night")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tariff Night missing")
}
