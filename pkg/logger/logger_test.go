package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("before init", zap.String("k", "v"))
		Warn("before init")
	})
}

func TestInit_FileOutput(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "unibot.log")
	require.NoError(t, Init("info", "json", path))
	assert.Same(t, Log, GetLogger())

	Debug("dropped below level")
	Info("chat answered", zap.String("request_id", "abc"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"chat answered"`)
	assert.Contains(t, string(data), `"request_id":"abc"`)
	assert.NotContains(t, string(data), "dropped below level")
}

func TestInit_InvalidLevel(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
}
