package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "fcig/internal/errors"
	"fcig/internal/pipeline"
)

// ErrRecomputeDisabled is returned by POST /runs when the server was started
// without recompute enabled.
var ErrRecomputeDisabled = apierrors.New(http.StatusForbidden, "RECOMPUTE_DISABLED", "Recompute is disabled on this server")

// RunsHandler exposes run history and on-demand recompute.
type RunsHandler struct {
	runs           RunService
	allowRecompute bool
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(runs RunService, allowRecompute bool, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RunsHandler {
	return &RunsHandler{
		runs:           runs,
		allowRecompute: allowRecompute,
		logger:         logger.With(slog.String("component", "runs_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the run routes
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListRuns)
	r.Post("/", h.CreateRun)
	return r
}

// ListRuns handles GET /runs, oldest first.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"running": h.runs.Running(),
		"runs":    h.runs.History(),
	})
}

// CreateRun handles POST /runs. The run executes within the request and its
// summary is returned on success.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if !h.allowRecompute {
		h.errorHandler.HandleError(w, r, ErrRecomputeDisabled)
		return
	}

	// Runs may outlast the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	reqID := middleware.GetReqID(r.Context())
	h.logger.InfoContext(r.Context(), "recompute requested", slog.String("request_id", reqID))

	run, err := h.runs.Execute(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		h.errorHandler.HandleError(w, r, apierrors.ErrRunInProgress)
		return
	case err != nil:
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, run.Summary)
}
