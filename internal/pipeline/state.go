package pipeline

import (
	"path/filepath"
	"sync"
	"time"

	"dumpsift/pkg/contracts/domain"
)

// Status represents the overall run status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// RunState is the shared state of one split run. Stages populate it in
// order: the segment stage stores the section set, the materialize stage
// the written files and per-section failures, and so on down the line.
type RunState struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Stages map[string]*StageState `json:"stages"`

	// Run inputs. WorkbookName is empty when no workbook was requested;
	// a relative name lands inside OutputDir.
	InputPath    string `json:"input_path"`
	OutputDir    string `json:"output_dir"`
	WorkbookName string `json:"workbook_name,omitempty"`

	// Accumulated outputs.
	Set          *domain.SectionSet          `json:"-"`
	Sections     []domain.SectionSummary     `json:"sections,omitempty"`
	Files        []string                    `json:"files,omitempty"`
	Failures     []domain.SectionFailure     `json:"failures,omitempty"`
	GainsPath    string                      `json:"gains_path,omitempty"`
	WorkbookPath string                      `json:"workbook_path,omitempty"`
	Verification *domain.VerificationSummary `json:"verification,omitempty"`

	Error error `json:"error,omitempty"`
}

// NewRunState creates a pending run state for the given input and output.
func NewRunState(id, inputPath, outputDir string) *RunState {
	return &RunState{
		ID:        id,
		Status:    StatusPending,
		StartTime: time.Now(),
		Stages:    make(map[string]*StageState),
		InputPath: inputPath,
		OutputDir: outputDir,
	}
}

// Start marks the run as running.
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as completed.
func (s *RunState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StatusCompleted
}

// Fail marks the run as failed.
func (s *RunState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StatusFailed
	s.Error = err
}

// Cancel marks the run as cancelled.
func (s *RunState) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StatusCancelled
}

// GetStage returns the state of a specific stage.
func (s *RunState) GetStage(stageID string) *StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stages[stageID]
}

// SetStage registers the state of a specific stage.
func (s *RunState) SetStage(stageID string, state *StageState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stages[stageID] = state
}

// SetSections stores the segmented section set.
func (s *RunState) SetSections(set *domain.SectionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Set = set
}

// AddFile records one written output path.
func (s *RunState) AddFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files = append(s.Files, path)
}

// AddSection records the summary of one recognized section.
func (s *RunState) AddSection(summary domain.SectionSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sections = append(s.Sections, summary)
}

// AddFailure records one section that could not be materialized.
func (s *RunState) AddFailure(failure domain.SectionFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures = append(s.Failures, failure)
}

// SetGainsPath records the written gains summary path.
func (s *RunState) SetGainsPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GainsPath = path
}

// SetWorkbookPath records the written workbook path.
func (s *RunState) SetWorkbookPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WorkbookPath = path
}

// SetVerification records the output verification summary.
func (s *RunState) SetVerification(v *domain.VerificationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Verification = v
}

// WrittenFile returns the output path of a successfully materialized
// section, or false when the kind was not recognized or failed to write.
func (s *RunState) WrittenFile(kind domain.SectionKind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sum := range s.Sections {
		if sum.Kind == kind && sum.OutputFile != "" {
			return filepath.Join(s.OutputDir, sum.OutputFile), true
		}
	}
	return "", false
}

// HasFailures reports whether any section failed to materialize.
func (s *RunState) HasFailures() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Failures) > 0
}

// Duration returns how long the run has been going, or took.
func (s *RunState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Result condenses the state into the run result carried on API responses
// and printed by the CLI. A run that executed to the end but recorded
// section failures reports partial status.
func (s *RunState) Result() *domain.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := time.Now()
	if s.EndTime != nil {
		completed = *s.EndTime
	}

	status := domain.RunStatusCompleted
	switch {
	case s.Status == StatusFailed || s.Status == StatusCancelled:
		status = domain.RunStatusFailed
	case len(s.Failures) > 0:
		status = domain.RunStatusPartial
	}

	return &domain.RunResult{
		RunID:        s.ID,
		Status:       status,
		InputPath:    s.InputPath,
		OutputDir:    s.OutputDir,
		Sections:     append([]domain.SectionSummary(nil), s.Sections...),
		Files:        append([]string(nil), s.Files...),
		GainsSummary: s.GainsPath,
		WorkbookPath: s.WorkbookPath,
		Failures:     append([]domain.SectionFailure(nil), s.Failures...),
		Verification: s.Verification,
		StartedAt:    s.StartTime,
		CompletedAt:  completed,
		Duration:     completed.Sub(s.StartTime),
	}
}
