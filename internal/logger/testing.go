package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger creates a logger that captures logs for assertions.
// The returned ObservedLogs can be used to verify log messages in tests.
func TestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// Capture installs an observing logger as the global logger and returns
// the captured logs plus a restore function.
func Capture() (*observer.ObservedLogs, func()) {
	prev := get()
	l, logs := TestLogger()
	SetLogger(l)

	return logs, func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}
