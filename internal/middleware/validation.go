package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "dumpsift/internal/errors"
)

// ValidationMiddleware guards request bodies before they reach a handler
// and validates decoded structs against their validate tags.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware builds the validator with the dump-specific tag
// set registered. Field names in error details come from json tags, so the
// API reports the names clients actually sent.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()
	v.RegisterValidation("filename", isValidFilename)
	v.RegisterValidation("dumppath", isValidDumpPath)
	v.RegisterTagNameFunc(jsonTagName)

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  1 * 1024 * 1024, // split requests carry paths, not payloads
	}
}

func jsonTagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ValidateRequest rejects oversized or syntactically invalid JSON bodies
// before the handler decodes them. Read-only methods pass through.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			tooLarge := apierrors.NewWithDetails(http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE", "Request body exceeds maximum allowed size",
				map[string]any{"max_size": m.maxBodySize, "size": r.ContentLength})
			m.errorHandler.HandleError(w, r, tooLarge)
			return
		}

		if r.Body != nil && r.ContentLength > 0 {
			body, err := m.snapshotBody(r)
			if err != nil {
				m.logger.ErrorContext(r.Context(), "failed to read request body",
					slog.String("error", err.Error()),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}

			if len(body) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest,
					"INVALID_JSON", "Request body contains invalid JSON"))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// snapshotBody drains the request body and replaces it with a reader over
// the same bytes, so the handler can decode it again.
func (m *ValidationMiddleware) snapshotBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// ValidateStruct checks v against its validate tags and converts failures
// into one VALIDATION_FAILED response listing every rejected field.
func (m *ValidationMiddleware) ValidateStruct(v any) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fields []apierrors.ValidationError
	for _, fieldErr := range err.(validator.ValidationErrors) {
		fields = append(fields, apierrors.ValidationError{
			Field:   fieldErr.Field(),
			Message: m.validationMessage(fieldErr),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

// validationMessage renders one field failure as a human-readable sentence.
func (m *ValidationMiddleware) validationMessage(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", field)
	case "dumppath":
		return fmt.Sprintf("%s must be a readable file path", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// ContentTypeValidator rejects write requests whose Content-Type matches
// none of the allowed prefixes. Read and delete methods pass through.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete:
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, apierrors.New(http.StatusBadRequest,
					"MISSING_CONTENT_TYPE", "Content-Type header is required"))
				return
			}

			if hasAnyPrefix(contentType, contentTypes) {
				next.ServeHTTP(w, r)
				return
			}

			unsupported := apierrors.NewWithDetails(http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE", "Unsupported content type",
				map[string]any{"content_type": contentType, "allowed": contentTypes})
			render.Status(r, http.StatusUnsupportedMediaType)
			render.JSON(w, r, unsupported)
		})
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isValidDumpPath rejects paths with embedded NUL bytes or trailing
// separators. Existence is checked later by the split service so that a
// missing dump maps to 404 rather than 400.
func isValidDumpPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" || strings.ContainsRune(path, 0) {
		return false
	}
	return !strings.HasSuffix(path, "/") && !strings.HasSuffix(path, "\\")
}

// isValidFilename accepts bare file names only; separators and parent
// references would escape the run directory.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
