package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_WritesFileLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, Level: "debug"}))

	LogInfo("pass finished", zap.String("pass_id", "abc"), zap.Int("signals", 2))
	LogError("store down", zap.Error(errors.New("dial tcp: refused")))
	LogDebug("noise")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "INFO pass finished\t")
	assert.Contains(t, lines[0], `"pass_id":"abc"`)
	assert.Contains(t, lines[0], `"signals":2`)
	assert.Contains(t, lines[1], `"error":"dial tcp: refused"`)
	assert.Contains(t, lines[2], "DEBUG noise")
}

func TestInit_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, Level: "warn"}))

	LogInfo("hidden")
	LogWarn("shown")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "WARN shown")
}

func TestInit_InvalidLevel(t *testing.T) {
	assert.Error(t, Init(Options{Dir: t.TempDir(), Level: "loud"}))
}

func TestLoggersAreNoopBeforeInit(t *testing.T) {
	Sync()
	assert.NotPanics(t, func() {
		LogSuccess("nothing")
		LogResponse("id", 500, 10, zap.String("endpoint", "/x"))
	})
}

func TestRotatingWriter_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := openLogFile(path, 10)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("0123456789ABCDEF"))
	require.NoError(t, err)
	_, err = w.Write([]byte("next"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "next", string(data))
}

func TestConsoleLine(t *testing.T) {
	assert.Equal(t, "✓ done (12ms)", consoleLine("✓ ", "done", []zap.Field{zap.Int64("duration_ms", 12)}))
	assert.Equal(t, "✗ failed", consoleLine("✗ ", "failed", nil))
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
