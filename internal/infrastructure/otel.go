package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "dumpsift"
	ServiceVersion = "1.2.0"
	MeterName      = "dumpsift"
)

// OTelConfig selects the exporters and sampling for a process.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders bundles everything InitializeOTel produced so the app
// can wire handlers and shut the pipelines down in one place.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *Metrics
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig enables both signals with full sampling, reading
// the environment name from ENVIRONMENT.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics. Disabled signals are
// replaced by no-ops so callers never need nil checks on the tracer.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()
	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := newResource(cfg)

	providers := &OTelProviders{
		Tracer: noop.NewTracerProvider().Tracer(MeterName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		tp, err := newTraceProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		if tp != nil {
			providers.TracerProvider = tp
			providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
			otel.SetTracerProvider(tp)
			logger.InfoContext(ctx, "tracing initialized",
				slog.String("exporter", cfg.TraceExporter),
				slog.Float64("sample_ratio", cfg.SampleRatio))
		}
	}

	if cfg.EnableMetrics {
		mp, scrape, err := newMeterProvider(cfg, res)
		if err != nil {
			return nil, fmt.Errorf("initializing metrics: %w", err)
		}
		if mp != nil {
			providers.MeterProvider = mp
			providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
			providers.PrometheusHTTP = scrape
			otel.SetMeterProvider(mp)

			providers.Metrics, err = CreateMetrics(providers.Meter)
			if err != nil {
				return nil, fmt.Errorf("creating metrics: %w", err)
			}
			logger.InfoContext(ctx, "metrics initialized",
				slog.String("exporter", cfg.MetricExporter))
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func newResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", uuid.New().String()),
	)
}

// newTraceProvider builds the tracer provider for the configured
// exporter. The "none" exporter yields a nil provider with no error.
func newTraceProvider(cfg *OTelConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "none":
		return nil, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	), nil
}

// newMeterProvider builds the meter provider plus the scrape handler
// that backs /metrics. The "none" exporter yields nils with no error.
func newMeterProvider(cfg *OTelConfig, res *resource.Resource) (*sdkmetric.MeterProvider, http.Handler, error) {
	switch cfg.MetricExporter {
	case "none":
		return nil, nil, nil
	case "prometheus":
	default:
		return nil, nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	// Each initialization gets its own registry; nothing is registered
	// globally.
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// Metrics is the full instrument set. All Record helpers tolerate a
// nil receiver so metrics can be disabled without guarding call sites.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Split run metrics
	SplitRunsTotal     metric.Int64Counter
	SplitRunDuration   metric.Float64Histogram
	SplitStagesTotal   metric.Int64Counter
	SplitStageDuration metric.Float64Histogram
	SplitActiveRuns    metric.Int64UpDownCounter
	SplitErrors        metric.Int64Counter

	// Section metrics
	SectionsRecognized metric.Int64Counter
	SectionFailures    metric.Int64Counter
	FilesWritten       metric.Int64Counter
	LinesProcessed     metric.Int64Counter

	// Gains metrics
	GainsRowsComputed metric.Int64Counter
	GainsRowsDropped  metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateMetrics builds every instrument on the given meter. If any
// creation fails the first error is returned and the whole set is
// discarded.
func CreateMetrics(meter metric.Meter) (*Metrics, error) {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		keep(err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		keep(err)
		return h
	}
	upDown := func(name, desc string) metric.Int64UpDownCounter {
		c, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		keep(err)
		return c
	}

	m := &Metrics{
		HTTPRequestsTotal:   counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  upDown("http_active_requests", "Number of active HTTP requests"),

		SplitRunsTotal:     counter("split_runs_total", "Total number of split runs"),
		SplitRunDuration:   histogram("split_run_duration_seconds", "Split run duration in seconds"),
		SplitStagesTotal:   counter("split_stages_total", "Total number of split stages executed"),
		SplitStageDuration: histogram("split_stage_duration_seconds", "Split stage execution duration in seconds"),
		SplitActiveRuns:    upDown("split_active_runs", "Number of split runs in flight"),
		SplitErrors:        counter("split_errors_total", "Total number of failed split runs"),

		SectionsRecognized: counter("sections_recognized_total", "Total number of sections recognized in dumps"),
		SectionFailures:    counter("section_failures_total", "Total number of sections that failed to materialize"),
		FilesWritten:       counter("files_written_total", "Total number of output files written"),
		LinesProcessed:     counter("lines_processed_total", "Total number of dump lines processed"),

		GainsRowsComputed: counter("gains_rows_computed_total", "Total number of capital gains rows computed"),
		GainsRowsDropped:  counter("gains_rows_dropped_total", "Total number of sales rows dropped as unparseable"),

		SystemErrors: counter("system_errors_total", "Total number of system errors"),
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

// Shutdown flushes and stops both providers, returning the first error.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var firstErr error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutting down tracer provider: %w", err)
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutting down meter provider: %w", err)
		}
	}
	return firstErr
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records an error on the current span and marks it failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanAttributes sets attributes on the current span.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// TraceIDFromContext extracts the trace ID of the active span, or ""
// when the context carries no sampled span.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// RecordRunMetrics records the outcome of one split run. Safe on a nil
// receiver so disabled metrics need no call-site guards.
func (m *Metrics) RecordRunMetrics(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.SplitRunsTotal.Add(ctx, 1, attrs)
	m.SplitRunDuration.Record(ctx, duration.Seconds(), attrs)
	if status == "failed" {
		m.SplitErrors.Add(ctx, 1)
	}
}

// RecordStageMetrics records one stage execution.
func (m *Metrics) RecordStageMetrics(ctx context.Context, stageID string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stageID),
		attribute.Bool("success", success),
	)
	m.SplitStagesTotal.Add(ctx, 1, attrs)
	m.SplitStageDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSectionRecognized counts one classified section and its lines.
func (m *Metrics) RecordSectionRecognized(ctx context.Context, kind string, lines int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.SectionsRecognized.Add(ctx, 1, attrs)
	m.LinesProcessed.Add(ctx, int64(lines), attrs)
}

// RecordSectionFailure counts one section that could not be materialized.
func (m *Metrics) RecordSectionFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.SectionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordFileWritten counts one output artifact.
func (m *Metrics) RecordFileWritten(ctx context.Context, kind, format string) {
	if m == nil {
		return
	}
	m.FilesWritten.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("format", format),
	))
}

// RecordGainsRows counts the rows kept and dropped by one gains computation.
func (m *Metrics) RecordGainsRows(ctx context.Context, computed, dropped int) {
	if m == nil {
		return
	}
	m.GainsRowsComputed.Add(ctx, int64(computed))
	if dropped > 0 {
		m.GainsRowsDropped.Add(ctx, int64(dropped))
	}
}
