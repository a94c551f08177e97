// Package logging provides a minimal structured logging interface so the
// stores, runner and sweeper can log without binding callers to a concrete
// logger. The default adapter wraps log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal interface accepted throughout the module. Args are
// alternating key/value pairs, slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// New creates a text-format Logger writing to w at the given level.
func New(w io.Writer, level slog.Level) Logger {
	return NewSlogAdapter(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// NewDefault creates a Logger writing to stderr at info level.
func NewDefault() Logger {
	return New(os.Stderr, slog.LevelInfo)
}

// NoOpLogger discards all log messages. It is the default wherever a Logger
// is optional.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}
