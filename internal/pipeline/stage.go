package pipeline

import (
	"context"
	"sync"
	"time"
)

// Stage is one step of a split run. Stages execute sequentially against a
// shared RunState; each reads the outputs of its predecessors and records
// its own.
type Stage interface {
	// ID returns the stable identifier used in logs, spans, and metrics.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Validate checks whether the stage applies to the current state. A
	// validation error skips the stage without failing the run.
	Validate(state *RunState) error

	// Execute runs the stage, mutating state with its outputs.
	Execute(ctx context.Context, state *RunState) error
}

// StageStatus represents the current status of a stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageState tracks the runtime state of one stage within a run.
type StageState struct {
	mu        sync.RWMutex
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     error       `json:"error,omitempty"`
}

// NewStageState creates a pending stage state.
func NewStageState(id, name string) *StageState {
	return &StageState{
		ID:     id,
		Name:   name,
		Status: StageStatusPending,
	}
}

// Start marks the stage as active and sets the start time.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
}

// Complete marks the stage as completed and sets the end time.
func (s *StageState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
}

// Fail marks the stage as failed with the given error.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	s.Error = err
}

// Skip marks the stage as skipped with the given reason.
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// Duration returns how long the stage has been running, or ran.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// BaseStage carries the identity shared by every stage implementation.
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a base stage with the given identity.
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the stage ID.
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the stage name.
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}
