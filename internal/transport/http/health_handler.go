package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"fcig/internal/pipeline"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Running   bool              `json:"running"`
	LastRun   *pipeline.Summary `json:"last_run,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	runs    RunService
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(runs RunService, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		runs:    runs,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health. The service reports "degraded"
// until a run has completed, and stays healthy after a later run fails.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Running:   h.runs.Running(),
	}

	if history := h.runs.History(); len(history) > 0 {
		last := history[len(history)-1]
		resp.LastRun = &last
	}
	if h.runs.Latest() == nil {
		resp.Status = "degraded"
	}
	render.JSON(w, r, resp)
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "alive"})
}

// ReadinessCheck handles GET /api/health/ready. Ready means a run has completed.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.runs.Latest() == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "not_ready"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}
