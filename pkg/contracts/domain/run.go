package domain

import "time"

// RunStatus represents the outcome of a split run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult summarizes one split run: which sections were found, which files
// were written, and which sections could not be materialized.
type RunResult struct {
	RunID        string               `json:"run_id"`
	Status       RunStatus            `json:"status"`
	InputPath    string               `json:"input_path"`
	OutputDir    string               `json:"output_dir"`
	Sections     []SectionSummary     `json:"sections"`
	Files        []string             `json:"files"`
	GainsSummary string               `json:"gains_summary,omitempty"`
	WorkbookPath string               `json:"workbook_path,omitempty"`
	Failures     []SectionFailure     `json:"failures,omitempty"`
	Verification *VerificationSummary `json:"verification,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  time.Time            `json:"completed_at"`
	Duration     time.Duration        `json:"duration"`
}

// SectionSummary describes one recognized section of a completed run.
type SectionSummary struct {
	Kind       SectionKind  `json:"kind"`
	Format     OutputFormat `json:"format"`
	LineCount  int          `json:"line_count"`
	OutputFile string       `json:"output_file,omitempty"`
}

// SectionFailure records a section that was recognized but could not be
// written, with the reason.
type SectionFailure struct {
	Kind  SectionKind `json:"kind"`
	Error string      `json:"error"`
}

// VerificationSummary is the post-run output check: how many expected files
// were examined, and which turned out missing, empty, or unaccounted for.
type VerificationSummary struct {
	Checked int      `json:"checked"`
	Missing []string `json:"missing,omitempty"`
	Empty   []string `json:"empty,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

// RecognizerInfo describes one registered recognizer rule for API listings,
// in match-priority order.
type RecognizerInfo struct {
	Kind     SectionKind  `json:"kind"`
	RuleType string       `json:"rule_type"`
	Trigger  string       `json:"trigger"`
	Format   OutputFormat `json:"format"`
	Priority int          `json:"priority"`
}
