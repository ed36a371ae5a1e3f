package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"dumpsift/internal/config"
	"dumpsift/internal/exporter"
	"dumpsift/internal/files"
	"dumpsift/internal/gains"
	"dumpsift/internal/infrastructure"
	"dumpsift/internal/pipeline"
	"dumpsift/internal/segmenter"
	"dumpsift/pkg/contracts/domain"
)

// options holds the parsed command line.
type options struct {
	dumpPath string
	outDir   string
	xlsx     bool
	bom      bool
	verify   bool
}

func main() {
	xlsx := flag.Bool("xlsx", false, "also write a combined XLSX workbook of the tabular sections")
	bom := flag.Bool("bom", false, "prefix CSV outputs with a UTF-8 byte order mark")
	verify := flag.Bool("verify", false, "print the output verification report after the run")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}

	opts := options{
		dumpPath: flag.Arg(0),
		outDir:   flag.Arg(1),
		xlsx:     *xlsx,
		bom:      *bom,
		verify:   *verify,
	}
	os.Exit(run(opts))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <dump.txt> <output_dir>\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "Splits a financial export dump into per-section files.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

// run executes one split and returns the process exit code.
func run(opts options) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	// One trace ID tags every log line of the run.
	ctx := infrastructure.ContextWithTraceID(context.Background())

	logger, closeLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = infrastructure.LoggerWithTrace(ctx, slog.Default())
		closeLogger = func() error { return nil }
	}
	defer closeLogger()

	state := pipeline.NewRunState(uuid.New().String(), opts.dumpPath, opts.outDir)
	if opts.xlsx {
		state.WorkbookName = domain.WorkbookFileName
	}

	runner := pipeline.NewRunner(buildStages(opts, logger), logger, nil)
	result, runErr := runner.Run(ctx, state)

	if result != nil {
		printSummary(result)
	}

	if opts.verify && state.Set != nil {
		expected := files.Expected(state.Set, result != nil && result.GainsSummary != "")
		report, verr := files.NewVerifier(logger).Verify(opts.outDir, expected)
		if verr != nil {
			fmt.Fprintf(os.Stderr, "verification failed: %v\n", verr)
		} else {
			fmt.Println(report.String())
		}
	}

	if runErr != nil {
		if pipeline.GetErrorType(runErr) != pipeline.ErrorTypeSection {
			fmt.Fprintf(os.Stderr, "split failed: %v\n", runErr)
		}
		return 1
	}
	return 0
}

// buildStages assembles the pipeline. No OTel here; the nil metrics make
// every recorder a no-op.
func buildStages(opts options, logger *slog.Logger) []pipeline.Stage {
	if !opts.bom {
		return pipeline.StandardStages(logger, nil)
	}

	writer := exporter.NewMaterializer(logger)
	writer.BOM = true

	return []pipeline.Stage{
		pipeline.NewSegmentStage(segmenter.New(logger), nil, logger),
		pipeline.NewMaterializeStage(writer, nil, logger),
		pipeline.NewGainsStage(gains.NewCalculator(logger), nil, logger),
		pipeline.NewWorkbookStage(writer, nil, logger),
		pipeline.NewVerifyStage(files.NewVerifier(logger), logger),
	}
}

// printSummary writes the human-readable run outcome: sections to stdout,
// failures to stderr.
func printSummary(result *domain.RunResult) {
	fmt.Printf("Input:  %s\n", result.InputPath)
	fmt.Printf("Output: %s\n", result.OutputDir)

	for _, sec := range result.Sections {
		fmt.Printf("  %-18s %5d lines -> %s\n", sec.Kind, sec.LineCount, sec.OutputFile)
	}
	if result.GainsSummary != "" {
		fmt.Printf("Gains report: %s\n", result.GainsSummary)
	}
	if result.WorkbookPath != "" {
		fmt.Printf("Workbook: %s\n", result.WorkbookPath)
	}

	for _, failure := range result.Failures {
		fmt.Fprintf(os.Stderr, "section %s failed: %s\n", failure.Kind, failure.Error)
	}
}
