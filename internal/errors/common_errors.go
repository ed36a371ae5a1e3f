package errors

import (
	"fmt"
)

// ErrorType classifies an AppError into the application taxonomy.
type ErrorType string

const (
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypePermission ErrorType = "PERMISSION"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// AppError is the transport-independent error carried through the split
// pipeline: a taxonomy type, a message, the wrapped cause, and free-form
// context. The HTTP handler maps the type onto a problem response when one
// surfaces at the API boundary.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches one key-value pair and returns the error for
// chaining. The map is allocated on first use.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewAppError builds an AppError of the given taxonomy type.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// NewParsingError reports unparseable input.
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewSectionError reports a section that could not be materialized, tagged
// with its kind.
func NewSectionError(kind string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, fmt.Sprintf("section %s failed", kind), cause).
		WithContext("section", kind)
}

// NewStorageError reports a filesystem read or write failure.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError reports rejected input outside the HTTP layer.
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError reports a missing resource by name.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, resource+" not found", nil)
}

// NewPermissionError reports an access failure.
func NewPermissionError(message string) *AppError {
	return NewAppError(ErrTypePermission, message, nil)
}

// NewConfigError reports unusable configuration.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
