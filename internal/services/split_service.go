package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"dumpsift/internal/config"
	apierrors "dumpsift/internal/errors"
	"dumpsift/internal/exporter"
	"dumpsift/internal/files"
	"dumpsift/internal/gains"
	"dumpsift/internal/infrastructure"
	"dumpsift/internal/pipeline"
	"dumpsift/internal/segmenter"
	"dumpsift/pkg/contracts/domain"
)

// SplitRequest carries the parameters of one split run started through the
// API. OutputDir and Workbook are optional; a missing output directory means
// a fresh run directory under the configured output root.
type SplitRequest struct {
	InputPath string `json:"input_path" validate:"required,dumppath"`
	OutputDir string `json:"output_dir,omitempty" validate:"omitempty,max=4096"`
	Workbook  bool   `json:"workbook,omitempty"`
}

// SplitService runs split pipelines against the configured paths and maps
// run outcomes onto transport errors.
type SplitService struct {
	cfg     *config.Config
	paths   *config.Paths
	metrics *infrastructure.Metrics
	tracer  *pipeline.RunTracer
	seg     *segmenter.Segmenter
	logger  *slog.Logger
}

// NewSplitService creates the split service. A nil providers argument
// disables metrics and falls back to the global tracer provider.
func NewSplitService(cfg *config.Config, paths *config.Paths, providers *infrastructure.OTelProviders, logger *slog.Logger) *SplitService {
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *infrastructure.Metrics
	if providers != nil {
		metrics = providers.Metrics
	}

	logger.Info("split service initialized",
		slog.String("output_dir", paths.OutputDir),
		slog.Duration("timeout", cfg.Split.Timeout),
		slog.Bool("workbook_default", cfg.Split.Workbook),
		slog.Bool("bom", cfg.Split.BOM))

	return &SplitService{
		cfg:     cfg,
		paths:   paths,
		metrics: metrics,
		tracer:  pipeline.NewRunTracer(providers),
		seg:     segmenter.New(logger),
		logger:  logger,
	}
}

// Split runs the pipeline against one dump file. The result is non-nil
// whenever a run was started. Per-section failures are not an error here:
// the result carries them with status partial and the caller decides the
// response shape. A missing dump maps to a 404 before any run starts.
func (s *SplitService) Split(ctx context.Context, req SplitRequest) (*domain.RunResult, error) {
	// Direct callers bypass the HTTP middleware; give them a trace ID too.
	ctx = infrastructure.EnsureTraceID(ctx)

	info, err := os.Stat(req.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apierrors.DumpNotFoundError(err)
		}
		return nil, apierrors.FileSystemError("reading dump file", err)
	}
	if info.IsDir() {
		return nil, apierrors.DumpNotFoundError(fmt.Errorf("%s is a directory, not a dump file", req.InputPath))
	}

	runID := uuid.New().String()
	outDir := s.outputDir(req.OutputDir, runID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apierrors.FileSystemError("creating run directory", err)
	}

	if s.cfg.Split.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Split.Timeout)
		defer cancel()
	}

	state := pipeline.NewRunState(runID, req.InputPath, outDir)
	if req.Workbook || s.cfg.Split.Workbook {
		state.WorkbookName = domain.WorkbookFileName
	}

	s.logger.InfoContext(ctx, "split requested",
		slog.String("run_id", runID),
		slog.String("input", req.InputPath),
		slog.String("output_dir", outDir),
		slog.Bool("workbook", state.WorkbookName != ""))

	runner := pipeline.NewRunner(s.stages(), s.logger, s.tracer)
	result, err := runner.Run(ctx, state)
	if err == nil {
		return result, nil
	}

	switch pipeline.GetErrorType(err) {
	case pipeline.ErrorTypeSection:
		// The run finished; the result names the sections that failed.
		return result, nil
	case pipeline.ErrorTypeCancellation:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	default:
		return result, apierrors.ErrSplitExecution(err)
	}
}

// Recognizers lists the registered recognizer rules in match-priority order.
func (s *SplitService) Recognizers(ctx context.Context) []domain.RecognizerInfo {
	return s.seg.Describe()
}

// outputDir resolves where a run writes. Relative request entries are
// anchored at the configured output root; absolute paths are taken as given.
func (s *SplitService) outputDir(requested, runID string) string {
	if requested == "" {
		return s.paths.RunDir(runID)
	}
	if filepath.IsAbs(requested) {
		return requested
	}
	return filepath.Join(s.paths.OutputDir, requested)
}

// stages builds the run's stage list. The materializer is shared between the
// materialize and workbook stages; BOM prefixing follows the configuration.
func (s *SplitService) stages() []pipeline.Stage {
	if !s.cfg.Split.BOM {
		return pipeline.StandardStages(s.logger, s.metrics)
	}

	writer := exporter.NewMaterializer(s.logger)
	writer.BOM = true
	return []pipeline.Stage{
		pipeline.NewSegmentStage(segmenter.New(s.logger), s.metrics, s.logger),
		pipeline.NewMaterializeStage(writer, s.metrics, s.logger),
		pipeline.NewGainsStage(gains.NewCalculator(s.logger), s.metrics, s.logger),
		pipeline.NewWorkbookStage(writer, s.metrics, s.logger),
		pipeline.NewVerifyStage(files.NewVerifier(s.logger), s.logger),
	}
}
