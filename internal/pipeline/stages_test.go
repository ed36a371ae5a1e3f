package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumpsift/internal/exporter"
	"dumpsift/internal/files"
	"dumpsift/internal/gains"
	"dumpsift/internal/segmenter"
	"dumpsift/internal/shared/testutil"
	"dumpsift/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// segmentedState runs the segment stage over a dump built from the given
// section fixtures and returns the populated state.
func segmentedState(t *testing.T, outDir string, sections ...string) *RunState {
	t.Helper()

	dump := testutil.BuildDump(sections...)
	input := testutil.WriteDumpFile(t, t.TempDir(), dump)
	state := NewRunState("run-test", input, outDir)

	stage := NewSegmentStage(segmenter.New(testLogger()), nil, testLogger())
	require.NoError(t, stage.Execute(context.Background(), state))
	return state
}

func TestStandardStages(t *testing.T) {
	stages := StandardStages(testLogger(), nil)

	require.Len(t, stages, 5)
	ids := make([]string, 0, len(stages))
	for _, s := range stages {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{StageSegment, StageMaterialize, StageGains, StageWorkbook, StageVerify}, ids)
}

func TestSegmentStage(t *testing.T) {
	dump := testutil.BuildDump(testutil.RobinhoodSection(), testutil.CryptoSection())
	input := testutil.WriteDumpFile(t, t.TempDir(), dump)
	state := NewRunState("run-1", input, t.TempDir())

	stage := NewSegmentStage(segmenter.New(testLogger()), nil, testLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	require.NotNil(t, state.Set)
	assert.Equal(t, []domain.SectionKind{domain.KindRobinhoodSales, domain.KindCryptoMovements}, state.Set.Kinds())
}

func TestSegmentStageMissingInput(t *testing.T) {
	state := NewRunState("run-1", filepath.Join(t.TempDir(), "absent.txt"), t.TempDir())

	stage := NewSegmentStage(segmenter.New(testLogger()), nil, testLogger())
	err := stage.Execute(context.Background(), state)

	require.Error(t, err)
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))
	assert.Contains(t, err.Error(), "absent.txt")
}

func TestMaterializeStageValidate(t *testing.T) {
	stage := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())

	state := NewRunState("run-1", "in", "out")
	err := stage.Validate(state)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))

	state.SetSections(domain.NewSectionSet())
	err = stage.Validate(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recognizable sections")
}

func TestMaterializeStageWritesSections(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection(), testutil.LogicAppSection())

	stage := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"))
	assert.FileExists(t, filepath.Join(outDir, "logic_app_json.json"))
	assert.Len(t, state.Files, 2)
	assert.Empty(t, state.Failures)

	require.Len(t, state.Sections, 2)
	assert.Equal(t, "robinhood_sales.csv", state.Sections[0].OutputFile)
	assert.Equal(t, domain.FormatJSON, state.Sections[1].Format)
}

func TestMaterializeStageContinuesPastBadSection(t *testing.T) {
	malformedCrypto := strings.Join([]string{
		"Transaction,Type,Input Currency,Input Amount,Output Currency",
		"tx-001,buy",
	}, "\n")

	outDir := t.TempDir()
	state := segmentedState(t, outDir, malformedCrypto, testutil.RobinhoodSection())

	stage := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, stage.Execute(context.Background(), state))

	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "crypto_movements.csv"))

	require.Len(t, state.Failures, 1)
	assert.Equal(t, domain.KindCryptoMovements, state.Failures[0].Kind)

	// The failed section still appears in the summaries, without a file.
	require.Len(t, state.Sections, 2)
	assert.Empty(t, state.Sections[0].OutputFile)
	assert.Equal(t, "robinhood_sales.csv", state.Sections[1].OutputFile)

	salesPath, ok := state.WrittenFile(domain.KindRobinhoodSales)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(outDir, "robinhood_sales.csv"), salesPath)
}

func TestGainsStageValidate(t *testing.T) {
	stage := NewGainsStage(gains.NewCalculator(testLogger()), nil, testLogger())

	state := NewRunState("run-1", "in", "out")
	err := stage.Validate(state)
	require.Error(t, err)

	state.SetSections(domain.NewSectionSet())
	err = stage.Validate(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robinhood_sales")
}

func TestGainsStageWritesReport(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection())

	materialize := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, materialize.Execute(context.Background(), state))

	stage := NewGainsStage(gains.NewCalculator(testLogger()), nil, testLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	reportPath := filepath.Join(outDir, domain.GainsSummaryFileName)
	assert.Equal(t, reportPath, state.GainsPath)
	assert.Contains(t, state.Files, reportPath)

	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "gain,days_held,long_term")
	assert.Contains(t, string(content), "366")
}

func TestWorkbookStageValidate(t *testing.T) {
	stage := NewWorkbookStage(exporter.NewMaterializer(testLogger()), nil, testLogger())

	state := NewRunState("run-1", "in", "out")
	err := stage.Validate(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workbook requested")

	state.WorkbookName = "dump.xlsx"
	err = stage.Validate(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sections")
}

func TestWorkbookStageWritesWorkbook(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection(), testutil.BTCSection())
	state.WorkbookName = "dump.xlsx"

	stage := NewWorkbookStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	expected := filepath.Join(outDir, "dump.xlsx")
	assert.Equal(t, expected, state.WorkbookPath)
	assert.FileExists(t, expected)
	assert.Contains(t, state.Files, expected)
}

func TestWorkbookStageNoTabularSections(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.LogicAppSection())
	state.WorkbookName = "dump.xlsx"

	stage := NewWorkbookStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, stage.Execute(context.Background(), state))

	assert.Empty(t, state.WorkbookPath)
	assert.NoFileExists(t, filepath.Join(outDir, "dump.xlsx"))
}

func TestVerifyStagePasses(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection(), testutil.CryptoSection())

	materialize := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, materialize.Execute(context.Background(), state))

	stage := NewVerifyStage(files.NewVerifier(testLogger()), testLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	require.NotNil(t, state.Verification)
	assert.Equal(t, 2, state.Verification.Checked)
	assert.Empty(t, state.Verification.Missing)
}

func TestVerifyStageDetectsMissingFile(t *testing.T) {
	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection(), testutil.CryptoSection())

	materialize := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, materialize.Execute(context.Background(), state))
	require.NoError(t, os.Remove(filepath.Join(outDir, "crypto_movements.csv")))

	stage := NewVerifyStage(files.NewVerifier(testLogger()), testLogger())
	err := stage.Execute(context.Background(), state)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing crypto_movements.csv")
	require.NotNil(t, state.Verification)
	assert.Equal(t, []string{"crypto_movements.csv"}, state.Verification.Missing)
}

func TestVerifyStageIgnoresFailedSections(t *testing.T) {
	malformedCrypto := strings.Join([]string{
		"Transaction,Type,Input Currency,Input Amount,Output Currency",
		"tx-001,buy",
	}, "\n")

	outDir := t.TempDir()
	state := segmentedState(t, outDir, testutil.RobinhoodSection(), malformedCrypto)

	materialize := NewMaterializeStage(exporter.NewMaterializer(testLogger()), nil, testLogger())
	require.NoError(t, materialize.Execute(context.Background(), state))
	require.True(t, state.HasFailures())

	stage := NewVerifyStage(files.NewVerifier(testLogger()), testLogger())
	err := stage.Execute(context.Background(), state)

	assert.NoError(t, err, "a section already recorded as failed is not expected on disk")
	assert.Equal(t, 1, state.Verification.Checked)
}

func TestPipelineEndToEnd(t *testing.T) {
	dump := testutil.BuildDump(
		testutil.RobinhoodSection(),
		testutil.CryptoSection(),
		testutil.LogicAppSection(),
	)
	input := testutil.WriteDumpFile(t, t.TempDir(), dump)
	outDir := t.TempDir()

	state := NewRunState("run-e2e", input, outDir)
	state.WorkbookName = "dump.xlsx"

	runner := NewRunner(StandardStages(testLogger(), nil), testLogger(), nil)
	result, err := runner.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Len(t, result.Files, 5)
	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"))
	assert.FileExists(t, filepath.Join(outDir, "crypto_movements.csv"))
	assert.FileExists(t, filepath.Join(outDir, "logic_app_json.json"))
	assert.FileExists(t, filepath.Join(outDir, "robinhood_gains_summary.csv"))
	assert.FileExists(t, filepath.Join(outDir, "dump.xlsx"))

	assert.Equal(t, filepath.Join(outDir, "robinhood_gains_summary.csv"), result.GainsSummary)
	assert.Equal(t, filepath.Join(outDir, "dump.xlsx"), result.WorkbookPath)

	require.NotNil(t, result.Verification)
	assert.Equal(t, 5, result.Verification.Checked)
	assert.Empty(t, result.Verification.Missing)
	assert.Empty(t, result.Verification.Empty)

	for _, id := range []string{StageSegment, StageMaterialize, StageGains, StageWorkbook, StageVerify} {
		assert.Equal(t, StageStatusCompleted, state.GetStage(id).Status, "stage %s", id)
	}
}

func TestPipelineEndToEndEmptyDump(t *testing.T) {
	input := testutil.WriteDumpFile(t, t.TempDir(), "nothing here\njust noise\n")
	outDir := t.TempDir()

	state := NewRunState("run-empty", input, outDir)
	runner := NewRunner(StandardStages(testLogger(), nil), testLogger(), nil)

	result, err := runner.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Empty(t, result.Files)
	assert.Empty(t, result.Sections)

	assert.Equal(t, StageStatusCompleted, state.GetStage(StageSegment).Status)
	assert.Equal(t, StageStatusSkipped, state.GetStage(StageMaterialize).Status)
	assert.Equal(t, StageStatusSkipped, state.GetStage(StageGains).Status)
	assert.Equal(t, StageStatusSkipped, state.GetStage(StageWorkbook).Status)
	assert.Equal(t, StageStatusCompleted, state.GetStage(StageVerify).Status)
}

func TestPipelineEndToEndPartial(t *testing.T) {
	malformedCrypto := strings.Join([]string{
		"Transaction,Type,Input Currency,Input Amount,Output Currency",
		"tx-001,buy",
	}, "\n")
	dump := testutil.BuildDump(testutil.RobinhoodSection(), malformedCrypto)
	input := testutil.WriteDumpFile(t, t.TempDir(), dump)
	outDir := t.TempDir()

	state := NewRunState("run-partial", input, outDir)
	runner := NewRunner(StandardStages(testLogger(), nil), testLogger(), nil)

	result, err := runner.Run(context.Background(), state)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeSection, GetErrorType(err))

	assert.Equal(t, domain.RunStatusPartial, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.KindCryptoMovements, result.Failures[0].Kind)

	// The well-formed sections and the gains summary still landed.
	assert.FileExists(t, filepath.Join(outDir, "robinhood_sales.csv"))
	assert.FileExists(t, filepath.Join(outDir, "robinhood_gains_summary.csv"))
}
