package pipeline

import (
	"context"
	"log/slog"
	"time"

	"dumpsift/pkg/contracts/domain"
)

// Runner executes the split pipeline stage by stage against one RunState.
type Runner struct {
	stages []Stage
	logger *slog.Logger
	tracer *RunTracer
}

// NewRunner creates a runner over the given stages.
func NewRunner(stages []Stage, logger *slog.Logger, tracer *RunTracer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = NewRunTracer(nil)
	}
	return &Runner{stages: stages, logger: logger, tracer: tracer}
}

// Run executes every stage in order. A stage whose Validate rejects the
// state is skipped; a stage whose Execute errors fails the run. The result
// is returned in every case. The error is non-nil when the run failed, was
// cancelled, or finished with sections left unmaterialized.
func (r *Runner) Run(ctx context.Context, state *RunState) (*domain.RunResult, error) {
	state.Start()
	ctx, span := r.tracer.StartRun(ctx, state)
	defer span.End()

	r.logger.InfoContext(ctx, "split run started",
		slog.String("run_id", state.ID),
		slog.String("input", state.InputPath),
		slog.String("output_dir", state.OutputDir))

	for _, stage := range r.stages {
		state.SetStage(stage.ID(), NewStageState(stage.ID(), stage.Name()))
	}

	for _, stage := range r.stages {
		select {
		case <-ctx.Done():
			state.Cancel()
			err := NewCancellationError(stage.ID())
			r.tracer.EndRun(ctx, span, state, "cancelled", state.Duration())
			r.logger.WarnContext(ctx, "split run cancelled",
				slog.String("run_id", state.ID),
				slog.String("stage", stage.ID()))
			return state.Result(), err
		default:
		}

		st := state.GetStage(stage.ID())
		if err := stage.Validate(state); err != nil {
			st.Skip(err.Error())
			r.logger.InfoContext(ctx, "stage skipped",
				slog.String("stage", stage.ID()),
				slog.String("reason", err.Error()))
			continue
		}

		st.Start()
		stageCtx, stageSpan := r.tracer.StartStage(ctx, state.ID, stage.ID())
		start := time.Now()
		err := stage.Execute(stageCtx, state)
		duration := time.Since(start)
		r.tracer.EndStage(stageCtx, stageSpan, stage.ID(), duration, err)
		stageSpan.End()

		if err != nil {
			werr := WrapError(err, stage.ID(), "")
			st.Fail(werr)
			state.Fail(werr)
			r.tracer.EndRun(ctx, span, state, "failed", state.Duration())
			r.logger.ErrorContext(ctx, "stage failed",
				slog.String("run_id", state.ID),
				slog.String("stage", stage.ID()),
				slog.Duration("duration", duration),
				slog.String("error", werr.Error()))
			return state.Result(), werr
		}

		st.Complete()
		r.logger.InfoContext(ctx, "stage completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", duration))
	}

	state.Complete()

	if state.HasFailures() {
		err := NewSectionsError(state.Failures)
		r.tracer.EndRun(ctx, span, state, "partial", state.Duration())
		r.logger.WarnContext(ctx, "split run finished with section failures",
			slog.String("run_id", state.ID),
			slog.Int("failures", len(state.Failures)),
			slog.Int("files", len(state.Files)))
		return state.Result(), err
	}

	r.tracer.EndRun(ctx, span, state, "completed", state.Duration())
	r.logger.InfoContext(ctx, "split run completed",
		slog.String("run_id", state.ID),
		slog.Int("sections", len(state.Sections)),
		slog.Int("files", len(state.Files)),
		slog.Duration("duration", state.Duration()))
	return state.Result(), nil
}
