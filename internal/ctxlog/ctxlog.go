// Package ctxlog provides a context key for safely passing a slog.Logger
// instance through context.Context.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. Library entry points may be
// called without one, so a missing logger falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// NewLogger builds a logger writing to w. level is one of debug, info, warn or error
// (anything else means info); format "json" selects the JSON handler, anything else
// the text handler.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
