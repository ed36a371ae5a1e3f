package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"dumpsift/internal/services"
)

// HealthHandler handles health-related HTTP requests.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	if service == nil {
		panic("health handler requires a service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{service: service, logger: logger.With(slog.String("handler", "health"))}
}

// Descriptor handles GET /, answering with the service descriptor.
func (h *HealthHandler) Descriptor(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"service":     "dumpsift",
		"description": "splits financial export dumps into per-source files",
		"version":     h.service.Version()["version"],
		"endpoints": []string{
			"GET  /api/health",
			"GET  /api/health/ready",
			"GET  /api/health/live",
			"GET  /api/version",
			"GET  /api/stats",
			"GET  /api/recognizers",
			"POST /api/split",
			"GET  /metrics",
		},
	})
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/health/ready. A not-ready service answers
// 503 so load balancers take it out of rotation.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if status.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// LivenessCheck handles GET /api/health/live.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck(r.Context()))
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}

// Stats handles GET /api/stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Stats(r.Context()))
}
