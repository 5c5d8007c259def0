// Package observability provides structured logging helpers for Kagami.
//
// It wraps log/slog with turn/call ID propagation and secret redaction so
// that every log line emitted during a tool invocation carries its
// correlation context.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/bdobrica/Kagami/common/redact"
	"github.com/bdobrica/Kagami/common/trace"
)

// Setup configures the global slog logger according to the provided level
// and format strings (e.g. level="info", format="json").
func Setup(level, format string) {
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
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithTurn returns a child logger that always includes the turn and call IDs
// from ctx, when present.
func WithTurn(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if turnID := trace.TurnID(ctx); turnID != "" {
		logger = logger.With("turn_id", turnID)
	}
	if callID := trace.CallID(ctx); callID != "" {
		logger = logger.With("call_id", callID)
	}
	return logger
}

// RedactSecrets replaces known-sensitive values in a log message with
// "[REDACTED]".  Call with the message text and the values to strip out.
func RedactSecrets(msg string, sensitiveValues ...string) string {
	return redact.String(msg, sensitiveValues...)
}
