package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// Init initializes the global logger with the specified verbose level.
// Logs go to stderr so they never interleave with streamed command output.
func Init(verbose bool) {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}

	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
}

// SetLogger replaces the global logger. Used by tests to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if l != nil {
		_ = l.Sync()
	}
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message with key/value pairs
func Debug(msg string, args ...any) {
	if l := get(); l != nil {
		l.Debugw(msg, args...)
	}
}

// Info logs an info message with key/value pairs
func Info(msg string, args ...any) {
	if l := get(); l != nil {
		l.Infow(msg, args...)
	}
}

// Warn logs a warning message with key/value pairs
func Warn(msg string, args ...any) {
	if l := get(); l != nil {
		l.Warnw(msg, args...)
	}
}

// Error logs an error message with key/value pairs
func Error(msg string, args ...any) {
	if l := get(); l != nil {
		l.Errorw(msg, args...)
	}
}
