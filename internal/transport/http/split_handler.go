package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "dumpsift/internal/errors"
	custommw "dumpsift/internal/middleware"
	"dumpsift/internal/services"
)

// SplitHandler handles split-run HTTP requests.
type SplitHandler struct {
	service      SplitServiceInterface
	validator    *custommw.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSplitHandler creates a new split handler.
func NewSplitHandler(service SplitServiceInterface, validator *custommw.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SplitHandler {
	if service == nil {
		panic("split service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SplitHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "split")),
	}
}

// Split handles POST /api/split: it validates the request body, runs the
// pipeline synchronously, and renders the run result. Partial runs render
// with status 200; the body carries the failure list.
func (h *SplitHandler) Split(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("split-handler")

	ctx, span := tracer.Start(ctx, "split_handler.split",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/split"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	var req services.SplitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_decode"))
		h.logger.WarnContext(ctx, "split request decode failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("split.input_path", req.InputPath),
		attribute.Bool("split.workbook", req.Workbook),
	)

	result, err := h.service.Split(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "split run failed")
		custommw.RecordSystemError(ctx, "split_execution", "split_handler")
		h.errorHandler.HandleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("split.run_id", result.RunID),
		attribute.String("split.status", string(result.Status)),
		attribute.Int("split.files", len(result.Files)),
	)
	span.SetStatus(codes.Ok, "")

	h.logger.InfoContext(ctx, "split run finished",
		slog.String("run_id", result.RunID),
		slog.String("status", string(result.Status)),
		slog.Int("files", len(result.Files)),
		slog.Int("failures", len(result.Failures)))

	render.JSON(w, r, result)
}

// Recognizers handles GET /api/recognizers, listing the registered
// recognizer rules in match-priority order.
func (h *SplitHandler) Recognizers(w http.ResponseWriter, r *http.Request) {
	infos := h.service.Recognizers(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"recognizers": infos,
		"count":       len(infos),
	})
}
