package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem type URIs. Clients that care about the failure class switch on
// these rather than on the status code.
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeForbidden       = "/errors/forbidden"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// Split-domain problem types.
const (
	TypeDumpNotFound = "/errors/dump/not-found"
	TypeSectionParse = "/errors/section/parse-failed"
	TypeRunFailed    = "/errors/split/run-failed"
)

// ProblemDetails is the RFC 7807 response body for handler-level errors.
// Extensions are flattened into the top-level JSON object.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]any `json:"-"`
}

// Render implements render.Renderer. The body is produced by
// MarshalJSON; only the status is set here.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON hoists the extensions next to the standard fields.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := map[string]any{
		"type":   pd.Type,
		"title":  pd.Title,
		"status": pd.Status,
	}
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails builds an RFC 7807 problem.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]any),
	}
}

// WithExtension adds an extension field and returns the problem for
// chaining.
func (pd *ProblemDetails) WithExtension(key string, value any) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// ErrorHandler turns errors and panics into problem responses. One
// instance serves the whole router.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates the handler. includeStack attaches stack
// traces to responses and belongs in development setups only.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs the error and renders it as a problem response. A nil
// error writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem := h.ErrorToProblem(err, r).WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", stackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem classifies an error. Typed errors (APIError, AppError)
// map precisely; everything else falls back to message sniffing and then
// to a generic 500.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", r.URL.Path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return h.appErrorToProblem(appErr, r)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found",
			msg, r.URL.Path)
	case strings.Contains(msg, "rate limit"):
		return NewProblemDetails(http.StatusTooManyRequests, TypeRateLimit, "Rate Limit Exceeded",
			"Too many requests. Please try again later.", r.URL.Path).
			WithExtension("retry_after", 60)
	case strings.Contains(msg, "conflict"):
		return NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict",
			msg, r.URL.Path)
	case strings.Contains(msg, "payload too large"):
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			"The request body exceeds the maximum allowed size", r.URL.Path)
	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
			"An unexpected error occurred while processing your request", r.URL.Path)
	}
}

// problemTypeByCode maps API error codes onto problem type URIs. Codes
// without an entry report as internal.
var problemTypeByCode = map[string]string{
	"VALIDATION_FAILED":      TypeValidation,
	"INVALID_REQUEST":        TypeValidation,
	"MISSING_PARAMETER":      TypeValidation,
	"INVALID_PARAMETER":      TypeValidation,
	"INVALID_JSON":           TypeValidation,
	"PAYLOAD_TOO_LARGE":      TypePayloadTooLarge,
	"NOT_FOUND":              TypeNotFound,
	"DUMP_NOT_FOUND":         TypeDumpNotFound,
	"CONFLICT":               TypeConflict,
	"RATE_LIMIT_EXCEEDED":    TypeRateLimit,
	"SERVICE_UNAVAILABLE":    TypeServiceDown,
	"SPLIT_FAILED":           TypeRunFailed,
	"SPLIT_EXECUTION_FAILED": TypeRunFailed,
}

func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType, ok := problemTypeByCode[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}

	problem := NewProblemDetails(apiErr.StatusCode, problemType,
		http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path).
		WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

type problemKind struct {
	status int
	typ    string
	title  string
}

// appProblemKinds maps internal error categories onto response shapes.
// Storage and config errors deliberately stay generic 500s.
var appProblemKinds = map[ErrorType]problemKind{
	ErrTypeParsing:    {http.StatusUnprocessableEntity, TypeSectionParse, "Section Parse Failed"},
	ErrTypeNotFound:   {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
	ErrTypeValidation: {http.StatusBadRequest, TypeValidation, "Validation Failed"},
	ErrTypePermission: {http.StatusForbidden, TypeForbidden, "Forbidden"},
}

func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	kind, ok := appProblemKinds[appErr.Type]
	if !ok {
		kind = problemKind{http.StatusInternalServerError, TypeInternal, "Internal Server Error"}
	}

	problem := NewProblemDetails(kind.status, kind.typ, kind.title, appErr.Error(), r.URL.Path)
	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// HandlePanic renders a recovered panic as a 500. The stack always goes
// to the log; it reaches the response only with includeStack.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered any) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path).
		WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", stackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound is the router's fallback for unknown paths.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed is the router's fallback for known paths hit with the
// wrong verb.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func stackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
