package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dumpsift/internal/infrastructure"
)

// TracerName identifies pipeline spans.
const TracerName = "dumpsift.pipeline"

// RunTracer instruments split runs with OpenTelemetry spans and the shared
// split metrics. A tracer built from nil providers produces no-op spans and
// records nothing, so the CLI can run without telemetry wiring.
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
}

// NewRunTracer creates a run tracer from the initialized providers.
func NewRunTracer(providers *infrastructure.OTelProviders) *RunTracer {
	rt := &RunTracer{tracer: otel.Tracer(TracerName)}
	if providers != nil {
		rt.metrics = providers.Metrics
	}
	return rt
}

// StartRun opens the run span and bumps the active-run gauge.
func (rt *RunTracer) StartRun(ctx context.Context, state *RunState) (context.Context, trace.Span) {
	ctx, span := rt.tracer.Start(ctx, "split.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.String("run.input_path", state.InputPath),
			attribute.String("run.output_dir", state.OutputDir),
		),
	)

	if rt.metrics != nil {
		rt.metrics.SplitActiveRuns.Add(ctx, 1)
	}
	return ctx, span
}

// EndRun records the run outcome on the span and in the metrics and drops
// the active-run gauge.
func (rt *RunTracer) EndRun(ctx context.Context, span trace.Span, state *RunState, status string, duration time.Duration) {
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
		attribute.Int("run.sections", len(state.Sections)),
		attribute.Int("run.files", len(state.Files)),
		attribute.Int("run.failures", len(state.Failures)),
	)

	rt.metrics.RecordRunMetrics(ctx, status, duration)
	if rt.metrics != nil {
		rt.metrics.SplitActiveRuns.Add(ctx, -1)
	}

	infrastructure.AddSpanEvent(ctx, "run.completed",
		attribute.String("run_id", state.ID),
		attribute.String("status", status),
	)

	if status == "completed" {
		span.SetStatus(codes.Ok, "split run completed")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("split run %s", status))
	}
}

// StartStage opens a child span for one stage.
func (rt *RunTracer) StartStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, fmt.Sprintf("split.stage.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.id", stageID),
		),
	)
}

// EndStage records one stage outcome. A non-nil err marks the span failed
// and is recorded on it.
func (rt *RunTracer) EndStage(ctx context.Context, span trace.Span, stageID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	rt.metrics.RecordStageMetrics(ctx, stageID, duration, err == nil)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		span.SetStatus(codes.Error, "stage execution failed")
		return
	}
	span.SetStatus(codes.Ok, "stage completed")
}
