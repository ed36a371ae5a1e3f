package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"dumpsift/internal/exporter"
	"dumpsift/internal/files"
	"dumpsift/internal/gains"
	"dumpsift/internal/infrastructure"
	"dumpsift/internal/segmenter"
	"dumpsift/pkg/contracts/domain"
)

// Stage identifiers, in execution order.
const (
	StageSegment     = "segment"
	StageMaterialize = "materialize"
	StageGains       = "gains"
	StageWorkbook    = "workbook"
	StageVerify      = "verify"
)

// StandardStages assembles the full split pipeline: segment, materialize,
// gains, workbook, verify. Callers needing a tuned materializer (BOM
// prefixing) build the stage list themselves.
func StandardStages(logger *slog.Logger, metrics *infrastructure.Metrics) []Stage {
	writer := exporter.NewMaterializer(logger)
	return []Stage{
		NewSegmentStage(segmenter.New(logger), metrics, logger),
		NewMaterializeStage(writer, metrics, logger),
		NewGainsStage(gains.NewCalculator(logger), metrics, logger),
		NewWorkbookStage(writer, metrics, logger),
		NewVerifyStage(files.NewVerifier(logger), logger),
	}
}

// SegmentStage reads the dump and classifies its lines into sections.
type SegmentStage struct {
	BaseStage
	seg     *segmenter.Segmenter
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewSegmentStage creates the segmentation stage.
func NewSegmentStage(seg *segmenter.Segmenter, metrics *infrastructure.Metrics, logger *slog.Logger) *SegmentStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentStage{
		BaseStage: NewBaseStage(StageSegment, "Segment dump"),
		seg:       seg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate always passes: segmentation is the first stage and a bad input
// path must fail the run, not skip it.
func (s *SegmentStage) Validate(state *RunState) error {
	return nil
}

// Execute segments the input dump and stores the section set on the state.
func (s *SegmentStage) Execute(ctx context.Context, state *RunState) error {
	set, err := s.seg.SegmentFile(state.InputPath)
	if err != nil {
		return WrapError(err, s.ID(), "")
	}
	state.SetSections(set)

	for _, sec := range set.Sections() {
		s.metrics.RecordSectionRecognized(ctx, string(sec.Kind), sec.LineCount())
	}
	s.logger.InfoContext(ctx, "dump segmented",
		slog.String("input", state.InputPath),
		slog.Int("sections", set.Len()))
	return nil
}

// MaterializeStage writes each recognized section to its output file. A
// section that fails to write is recorded on the state and the stage moves
// on; only the run outcome reflects the failure.
type MaterializeStage struct {
	BaseStage
	writer  *exporter.Materializer
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewMaterializeStage creates the materialization stage.
func NewMaterializeStage(writer *exporter.Materializer, metrics *infrastructure.Metrics, logger *slog.Logger) *MaterializeStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterializeStage{
		BaseStage: NewBaseStage(StageMaterialize, "Materialize sections"),
		writer:    writer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate skips the stage when segmentation produced nothing.
func (m *MaterializeStage) Validate(state *RunState) error {
	if state.Set == nil {
		return NewValidationError(m.ID(), "no section set on state")
	}
	if state.Set.Len() == 0 {
		return NewValidationError(m.ID(), "dump contained no recognizable sections")
	}
	return nil
}

// Execute writes every section, collecting per-section failures instead of
// aborting.
func (m *MaterializeStage) Execute(ctx context.Context, state *RunState) error {
	for _, sec := range state.Set.Sections() {
		summary := domain.SectionSummary{
			Kind:      sec.Kind,
			Format:    sec.Kind.Format(),
			LineCount: sec.LineCount(),
		}

		path, err := m.writer.WriteSection(sec, state.OutputDir)
		if err != nil {
			m.logger.ErrorContext(ctx, "section write failed",
				slog.String("kind", string(sec.Kind)),
				slog.String("error", err.Error()))
			state.AddSection(summary)
			state.AddFailure(domain.SectionFailure{Kind: sec.Kind, Error: err.Error()})
			m.metrics.RecordSectionFailure(ctx, string(sec.Kind))
			continue
		}

		summary.OutputFile = filepath.Base(path)
		state.AddSection(summary)
		state.AddFile(path)
		m.metrics.RecordFileWritten(ctx, string(sec.Kind), string(sec.Kind.Format()))
	}
	return nil
}

// GainsStage derives the capital-gains summary from the materialized sales
// export.
type GainsStage struct {
	BaseStage
	calc    *gains.Calculator
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewGainsStage creates the gains-report stage.
func NewGainsStage(calc *gains.Calculator, metrics *infrastructure.Metrics, logger *slog.Logger) *GainsStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &GainsStage{
		BaseStage: NewBaseStage(StageGains, "Compute gains summary"),
		calc:      calc,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate skips the stage unless the sales section made it to disk.
func (g *GainsStage) Validate(state *RunState) error {
	if state.Set == nil {
		return NewValidationError(g.ID(), "no section set on state")
	}
	if _, ok := state.WrittenFile(domain.KindRobinhoodSales); !ok {
		return NewValidationError(g.ID(), "no robinhood_sales export was written")
	}
	return nil
}

// Execute loads the sales CSV, computes the summary, and writes the report
// next to the section files. A sales table missing the required columns
// passes through unchanged; only I/O failures error.
func (g *GainsStage) Execute(ctx context.Context, state *RunState) error {
	salesPath, _ := state.WrittenFile(domain.KindRobinhoodSales)
	reportPath := filepath.Join(state.OutputDir, domain.GainsSummaryFileName)

	table, err := g.calc.FromCSV(salesPath)
	if err != nil {
		return WrapError(err, g.ID(), "")
	}
	summary := g.calc.Compute(table)
	if err := g.calc.WriteReport(summary, reportPath); err != nil {
		return WrapError(err, g.ID(), "")
	}

	// Compute returns its input untouched when the required columns are
	// absent; no rows were computed or dropped in that case.
	if summary != table {
		g.metrics.RecordGainsRows(ctx, summary.RowCount(), table.RowCount()-summary.RowCount())
	}

	state.SetGainsPath(reportPath)
	state.AddFile(reportPath)
	g.metrics.RecordFileWritten(ctx, "gains_summary", "csv")
	g.logger.InfoContext(ctx, "gains summary written",
		slog.String("path", reportPath),
		slog.Int("rows", summary.RowCount()))
	return nil
}

// WorkbookStage collects the tabular sections into one XLSX workbook when
// the run asked for one.
type WorkbookStage struct {
	BaseStage
	writer  *exporter.Materializer
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewWorkbookStage creates the workbook stage.
func NewWorkbookStage(writer *exporter.Materializer, metrics *infrastructure.Metrics, logger *slog.Logger) *WorkbookStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookStage{
		BaseStage: NewBaseStage(StageWorkbook, "Write workbook"),
		writer:    writer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Validate skips the stage when no workbook was requested or there is
// nothing to sheet.
func (w *WorkbookStage) Validate(state *RunState) error {
	if state.WorkbookName == "" {
		return NewValidationError(w.ID(), "no workbook requested")
	}
	if state.Set == nil || state.Set.Len() == 0 {
		return NewValidationError(w.ID(), "no sections to collect")
	}
	return nil
}

// Execute writes the workbook into the output directory, or at the given
// absolute path.
func (w *WorkbookStage) Execute(ctx context.Context, state *RunState) error {
	path := state.WorkbookName
	if !filepath.IsAbs(path) {
		path = filepath.Join(state.OutputDir, path)
	}

	written, err := w.writer.WriteWorkbook(state.Set, path)
	if err != nil {
		return WrapError(err, w.ID(), "")
	}
	if written == "" {
		w.logger.InfoContext(ctx, "workbook skipped, no tabular sections")
		return nil
	}

	state.SetWorkbookPath(written)
	state.AddFile(written)
	w.metrics.RecordFileWritten(ctx, "workbook", "xlsx")
	return nil
}

// VerifyStage checks the output directory against the files the run claims
// to have written.
type VerifyStage struct {
	BaseStage
	verifier *files.Verifier
	logger   *slog.Logger
}

// NewVerifyStage creates the verification stage.
func NewVerifyStage(verifier *files.Verifier, logger *slog.Logger) *VerifyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyStage{
		BaseStage: NewBaseStage(StageVerify, "Verify outputs"),
		verifier:  verifier,
		logger:    logger,
	}
}

// Validate skips the stage when segmentation never ran.
func (v *VerifyStage) Validate(state *RunState) error {
	if state.Set == nil {
		return NewValidationError(v.ID(), "no section set on state")
	}
	return nil
}

// Execute verifies that every file the run wrote is present with content.
// Sections already recorded as failures are not expected; a file that was
// reported written but is missing or empty fails the run.
func (v *VerifyStage) Execute(ctx context.Context, state *RunState) error {
	failed := make(map[string]bool, len(state.Failures))
	for _, f := range state.Failures {
		failed[f.Kind.OutputFileName()] = true
	}

	expected := make([]string, 0, state.Set.Len()+2)
	for _, name := range files.Expected(state.Set, state.GainsPath != "") {
		if !failed[name] {
			expected = append(expected, name)
		}
	}
	if state.WorkbookPath != "" && filepath.Dir(state.WorkbookPath) == filepath.Clean(state.OutputDir) {
		expected = append(expected, filepath.Base(state.WorkbookPath))
	}

	report, err := v.verifier.Verify(state.OutputDir, expected)
	if err != nil {
		return WrapError(err, v.ID(), "")
	}
	state.SetVerification(report.Summary())

	if !report.OK() {
		return WrapError(report.Err(), v.ID(), "")
	}
	return nil
}
