package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "fcig/internal/errors"
	"fcig/internal/fci"
	"fcig/internal/pipeline"
)

// SeriesQuery is the validated form of a series request.
type SeriesQuery struct {
	Horizon   fci.Horizon `validate:"required"`
	Quarterly bool
	From      string      `validate:"omitempty,datetime=2006-01-02"`
	To        string      `validate:"omitempty,datetime=2006-01-02"`
}

// SeriesResponse is a published series from one run.
type SeriesResponse struct {
	RunID string `json:"run_id"`
	*fci.Series
}

// PointResponse is the last point of a series.
type PointResponse struct {
	RunID     string        `json:"run_id"`
	Horizon   fci.Horizon   `json:"horizon"`
	Frequency fci.Frequency `json:"frequency"`
	Variables []string      `json:"variables"`
	Point     fci.Point     `json:"point"`
}

// DecompositionResponse is the time decomposition of one date.
type DecompositionResponse struct {
	RunID string `json:"run_id"`
	*fci.TimeDecomposition
}

// IndexHandler serves the published index of the latest run.
type IndexHandler struct {
	runs         RunService
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(runs RunService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IndexHandler {
	return &IndexHandler{
		runs:         runs,
		validate:     validator.New(),
		logger:       logger.With(slog.String("component", "index_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the index routes
func (h *IndexHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/fci/{horizon}", func(r chi.Router) {
		r.Get("/", h.GetSeries)
		r.Get("/latest", h.GetLatest)
	})
	r.Get("/decomposition/{date}", h.GetDecomposition)
	return r
}

// GetSeries handles GET /fci/{horizon}
func (h *IndexHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSeriesQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	run, ok := h.latest(w, r)
	if !ok {
		return
	}

	series := run.Series(q.Horizon, q.Quarterly)
	if q.From != "" || q.To != "" {
		from, _ := parseDate(q.From)
		to, _ := parseDate(q.To)
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("to", "must not be before from"))
			return
		}
		series = series.Between(from, to)
	}

	h.logger.DebugContext(r.Context(), "serving series",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("horizon", string(q.Horizon)),
		slog.Bool("quarterly", q.Quarterly),
		slog.Int("points", series.Len()))

	render.JSON(w, r, SeriesResponse{RunID: run.ID, Series: series})
}

// GetLatest handles GET /fci/{horizon}/latest
func (h *IndexHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSeriesQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	run, ok := h.latest(w, r)
	if !ok {
		return
	}

	series := run.Series(q.Horizon, q.Quarterly)
	p, ok := series.Latest()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("published point"))
		return
	}
	render.JSON(w, r, PointResponse{
		RunID:     run.ID,
		Horizon:   series.Horizon,
		Frequency: series.Frequency,
		Variables: series.Variables,
		Point:     p,
	})
}

// GetDecomposition handles GET /decomposition/{date}
func (h *IndexHandler) GetDecomposition(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	date, err := parseDate(raw)
	if err != nil || date.IsZero() {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", raw)))
		return
	}
	run, ok := h.latest(w, r)
	if !ok {
		return
	}

	td, err := run.Evaluator.DecomposeAt(date)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, DecompositionResponse{RunID: run.ID, TimeDecomposition: td})
}

func (h *IndexHandler) parseSeriesQuery(r *http.Request) (*SeriesQuery, error) {
	horizon, err := fci.ParseHorizon(chi.URLParam(r, "horizon"))
	if err != nil {
		return nil, apierrors.ErrValidation("horizon", err.Error())
	}

	values := r.URL.Query()
	q := &SeriesQuery{
		Horizon: horizon,
		From:    values.Get("from"),
		To:      values.Get("to"),
	}
	if raw := values.Get("quarterly"); raw != "" {
		quarterly, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apierrors.ErrValidation("quarterly", "must be true or false")
		}
		q.Quarterly = quarterly
	}

	if err := h.validate.Struct(q); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return nil, apierrors.ErrValidation(queryField(fe.Field()), validationMessage(fe))
		}
		return nil, apierrors.ErrInvalidParameter
	}
	return q, nil
}

// latest writes a 503 problem and returns false when no run has completed.
func (h *IndexHandler) latest(w http.ResponseWriter, r *http.Request) (*pipeline.Run, bool) {
	run := h.runs.Latest()
	if run == nil || run.Result == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return nil, false
	}
	return run, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func queryField(name string) string {
	switch name {
	case "Horizon":
		return "horizon"
	case "From":
		return "from"
	case "To":
		return "to"
	}
	return name
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a YYYY-MM-DD date"
	}
	return "is invalid"
}
