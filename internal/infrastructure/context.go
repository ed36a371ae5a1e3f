package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID returns a fresh UUID v4 for correlating log lines.
func GenerateTraceID() string {
	return uuid.NewString()
}

// ContextWithTraceID returns ctx tagged with a newly generated trace ID.
func ContextWithTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateTraceID())
}

// EnsureTraceID tags ctx with a trace ID unless it already carries one.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return ContextWithTraceID(ctx)
}

// LoggerWithTrace decorates an injected logger with the trace ID from
// context, if any. There is no package-level logger; every component
// receives its sink explicitly.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return logger
}
