package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the wire shape of a failed request: an HTTP status, a stable
// machine-readable code, and a human-readable message with optional details.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render sets the response status for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New builds an APIError from its three fixed parts.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails builds an APIError carrying extra context in Details.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

// The error catalog. Codes are stable; clients switch on them.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")

	ErrNotFound     = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrDumpNotFound = New(http.StatusNotFound, "DUMP_NOT_FOUND", "Dump file not found")

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrSplitFailed    = New(http.StatusInternalServerError, "SPLIT_FAILED", "Split run failed")
	ErrFileSystem     = New(http.StatusInternalServerError, "FILESYSTEM_ERROR", "File system error")

	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
)

// ValidationError names one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors wraps the full set of rejected fields for one request.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// InvalidRequestWithError reports an undecodable request body; the cause
// lands in Details.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation rejects a single field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors rejects a request over multiple fields at once.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// NotFoundError reports a missing resource by name.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", resource+" not found", resource)
}

// DumpNotFoundError reports a split request naming a dump that does not
// exist; the stat error lands in Details.
func DumpNotFoundError(err error) *APIError {
	return NewWithDetails(http.StatusNotFound, "DUMP_NOT_FOUND", "Dump file not found", err.Error())
}

// ErrSplitExecution reports a run that failed outright, as opposed to a
// partial run which is a successful response.
func ErrSplitExecution(err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "SPLIT_EXECUTION_FAILED", "Split run failed", err.Error())
}

// FileSystemError reports an I/O failure, naming the operation that hit it.
func FileSystemError(operation string, err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "FILESYSTEM_ERROR",
		fmt.Sprintf("File system error during %s", operation), err.Error())
}

// PanicRecovery carries what a recovered panic said.
type PanicRecovery struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ErrPanic converts a recovered panic value into a 500 response.
func ErrPanic(rec any) *APIError {
	return NewWithDetails(
		http.StatusInternalServerError,
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		PanicRecovery{
			Message: fmt.Sprintf("%v", rec),
		},
	)
}

// ErrorResponse is the success-flagged envelope used by WriteError.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse wraps an APIError in the response envelope.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}

// Render implements render.Renderer by delegating to the wrapped error.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// WriteError writes err as a JSON envelope without going through render,
// for callers outside a chi handler chain.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(NewErrorResponse(err))
}
