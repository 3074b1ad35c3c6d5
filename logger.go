package vectable

import (
	"log/slog"

	"github.com/hupe1980/vectable/internal/logging"
)

// Logger wraps slog.Logger with vectable-specific context.
// Operations log at Debug on success and at Error on failure.
type Logger = logging.Logger

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	return logging.NewLogger(handler)
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return logging.NewJSONLogger(level)
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return logging.NewTextLogger(level)
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return logging.Noop()
}
