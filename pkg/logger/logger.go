// Package logger configures the process-wide structured logger and carries
// a per-connection identifier through context so every log line emitted
// while serving one query can be correlated.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs either a JSON or text slog.Handler as the default logger.
func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithConnID attaches a connection identifier to ctx for later retrieval
// by FromContext.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, contextKey{}, connID)
}

// FromContext returns the default logger, augmented with the connection
// identifier carried in ctx if one was attached via WithConnID.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if connID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("conn_id", connID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
