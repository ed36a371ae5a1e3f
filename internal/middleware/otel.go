package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dumpsift/internal/infrastructure"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelMiddleware traces every request and feeds the HTTP instruments.
// It runs first in the middleware chain so the rest of the stack sees
// the trace ID on the context.
type OTelMiddleware struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewOTelMiddleware wires the middleware to the initialized providers.
// When the providers carry a meter but no ready-made instruments, the
// instruments are created here.
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	metrics := providers.Metrics
	if metrics == nil && providers.Meter != nil {
		var err error
		if metrics, err = infrastructure.CreateMetrics(providers.Meter); err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
	}

	return &OTelMiddleware{
		tracer:  providers.Tracer,
		metrics: metrics,
		logger:  providers.Logger,
	}, nil
}

// Handler opens a server span per request, records request metrics, and
// emits one access-log line when the handler returns.
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Join the caller's trace when the request carries one.
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttrs(r)...),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		r = r.WithContext(infrastructure.WithTraceID(ctx, traceID))

		if m.metrics != nil {
			m.metrics.HTTPActiveRequests.Add(ctx, 1)
			defer m.metrics.HTTPActiveRequests.Add(ctx, -1)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		m.finish(ctx, r, span, rec, traceID, time.Since(start))
	})
}

func (m *OTelMiddleware) finish(ctx context.Context, r *http.Request, span trace.Span, rec *statusRecorder, traceID string, elapsed time.Duration) {
	route := getRoutePattern(r)

	if m.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.Int("status_code", rec.status),
		)
		m.metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.metrics.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
	}

	span.SetAttributes(
		semconv.HTTPResponseStatusCodeKey.Int(rec.status),
		semconv.HTTPResponseBodySizeKey.Int64(rec.bytes),
		attribute.Float64("http.request.duration", elapsed.Seconds()),
	)
	if rec.status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(rec.status))
	}

	m.logger.InfoContext(ctx, "HTTP request completed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("route", route),
		slog.Int("status_code", rec.status),
		slog.Duration("duration", elapsed),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", GetRealIP(r)),
		slog.Int64("bytes_written", rec.bytes),
		slog.String("trace_id", traceID),
	)
}

func requestAttrs(r *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(r.URL.Path),
		semconv.URLSchemeKey.String(r.URL.Scheme),
		semconv.ServerAddressKey.String(r.Host),
		semconv.UserAgentOriginalKey.String(r.UserAgent()),
		semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
		semconv.ClientAddressKey.String(GetRealIP(r)),
	}
}

// statusRecorder captures the status code and body size for the span and
// the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// getRoutePattern resolves the chi route pattern, falling back to the raw
// path for requests that never matched a route.
func getRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// TraceMiddleware wraps a single route in a named span. The tracer is
// resolved per request so a provider installed later is still picked up.
func TraceMiddleware(operationName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := otel.Tracer("dumpsift").Start(r.Context(), operationName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(r.URL.Path),
				),
			)
			defer span.End()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type metricsContextKey struct{}

// MetricsMiddleware stashes the instruments on the request context so
// handlers can count domain-level failures.
func MetricsMiddleware(metrics *infrastructure.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), metricsContextKey{}, metrics)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetMetricsFromContext returns the instruments stashed by
// MetricsMiddleware, or nil outside the middleware chain.
func GetMetricsFromContext(ctx context.Context) *infrastructure.Metrics {
	metrics, _ := ctx.Value(metricsContextKey{}).(*infrastructure.Metrics)
	return metrics
}

// RecordSystemError bumps the system error counter. A context without
// instruments makes this a no-op, so callers never need a guard.
func RecordSystemError(ctx context.Context, errorType, component string) {
	metrics := GetMetricsFromContext(ctx)
	if metrics == nil {
		return
	}
	metrics.SystemErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
		attribute.String("component", component),
	))
}

// GetRealIP prefers the proxy-set headers over the socket address.
func GetRealIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if ip := r.Header.Get(header); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}
