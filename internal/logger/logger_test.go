package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestCapture(t *testing.T) {
	logs, restore := Capture()
	defer restore()

	Debug("debug message", "key", "value")
	Warn("warn message", "count", 3)
	Error("error message")

	require.Equal(t, 3, logs.Len())

	entries := logs.All()
	assert.Equal(t, "debug message", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "warn message", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestCaptureRestores(t *testing.T) {
	logs, restore := Capture()
	Info("captured")
	restore()

	Info("after restore")
	assert.Equal(t, 1, logs.Len())
}

func TestLogFunctionsWithNilLogger(t *testing.T) {
	_, restore := Capture()
	defer restore()

	mu.Lock()
	logger = nil
	mu.Unlock()

	// Must not panic when nothing initialized the logger.
	Debug("ignored")
	Info("ignored")
	Warn("ignored")
	Error("ignored")
}

func TestInitAndSync(t *testing.T) {
	Init(true)
	Debug("after init")
	Sync()

	mu.Lock()
	logger = nil
	mu.Unlock()
	Sync()
}
