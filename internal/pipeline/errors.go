package pipeline

import (
	"fmt"
	"strings"

	"dumpsift/pkg/contracts/domain"
)

// ErrorType classifies a run error.
type ErrorType string

const (
	// ErrorTypeValidation marks a stage precondition that does not hold.
	// Validation errors skip the stage; they never fail the run.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeExecution marks a stage that started and failed.
	ErrorTypeExecution ErrorType = "execution"

	// ErrorTypeSection marks a run that finished but left sections
	// unmaterialized.
	ErrorTypeSection ErrorType = "section"

	// ErrorTypeCancellation marks a run stopped by its context.
	ErrorTypeCancellation ErrorType = "cancellation"
)

// RunError is a classified error raised during a split run.
type RunError struct {
	Type    ErrorType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e == nil {
		return "unknown run error"
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a validation error for a stage precondition.
func NewValidationError(stage, message string) *RunError {
	return &RunError{
		Type:    ErrorTypeValidation,
		Stage:   stage,
		Message: message,
	}
}

// NewCancellationError creates a cancellation error.
func NewCancellationError(stage string) *RunError {
	return &RunError{
		Type:    ErrorTypeCancellation,
		Stage:   stage,
		Message: "run was cancelled",
	}
}

// NewSectionsError aggregates section failures into one run error naming
// the files that could not be written.
func NewSectionsError(failures []domain.SectionFailure) *RunError {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Kind.OutputFileName())
	}
	return &RunError{
		Type:    ErrorTypeSection,
		Message: fmt.Sprintf("%d section(s) could not be materialized: %s", len(failures), strings.Join(names, ", ")),
	}
}

// WrapError wraps an error with run context. An existing RunError keeps its
// classification and gains the stage if it had none.
func WrapError(err error, stage, message string) *RunError {
	if err == nil {
		return nil
	}

	if rErr, ok := err.(*RunError); ok {
		if rErr.Stage == "" {
			rErr.Stage = stage
		}
		if message != "" {
			rErr.Message = fmt.Sprintf("%s: %s", message, rErr.Message)
		}
		return rErr
	}

	if message == "" {
		message = err.Error()
	}
	return &RunError{
		Type:    ErrorTypeExecution,
		Stage:   stage,
		Message: message,
		Cause:   err,
	}
}

// GetErrorType returns the classification of an error. Errors raised
// outside the pipeline count as execution errors.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	if rErr, ok := err.(*RunError); ok {
		return rErr.Type
	}
	return ErrorTypeExecution
}
