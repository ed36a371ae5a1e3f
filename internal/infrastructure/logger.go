package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dumpsift/internal/config"
)

type contextKey string

// TraceIDContextKey carries the request trace ID through the context.
const TraceIDContextKey contextKey = "trace_id"

// NewLogger builds the process logger from the logging configuration.
// The close function releases the log file when file output is enabled
// and is a no-op otherwise. Components receive this logger explicitly;
// there is no package-global instance to initialize.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	output, closeFn, err := logOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     parseLogLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(traceInjector{next: handler}), closeFn, nil
}

// logOutput resolves the configured sink: stdout, a log file, or both.
func logOutput(cfg config.LoggingConfig) (io.Writer, func() error, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return os.Stdout, func() error { return nil }, nil
	}

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, nil, err
	}
	if mode == "both" {
		return io.MultiWriter(os.Stdout, file), file.Close, nil
	}
	return file, file.Close, nil
}

func openLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return file, nil
}

// traceInjector stamps the context's trace ID onto every record, so call
// sites never pass trace_id by hand.
type traceInjector struct {
	next slog.Handler
}

func (t traceInjector) Enabled(ctx context.Context, level slog.Level) bool {
	return t.next.Enabled(ctx, level)
}

func (t traceInjector) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return t.next.Handle(ctx, r)
}

func (t traceInjector) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceInjector{next: t.next.WithAttrs(attrs)}
}

func (t traceInjector) WithGroup(name string) slog.Handler {
	return traceInjector{next: t.next.WithGroup(name)}
}

// logLevels maps configured level names onto slog levels. Unknown names
// fall back to info.
var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLogLevel(level string) slog.Level {
	if lvl, ok := logLevels[strings.ToLower(level)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// WithTraceID returns a context carrying the trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the context's trace ID, or "" when none was set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDContextKey).(string)
	return traceID
}
