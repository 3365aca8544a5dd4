package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5/middleware"
	gws "github.com/gorilla/websocket"

	apierrors "fcig/internal/errors"
	"fcig/internal/websocket"
)

// EventHub accepts upgraded connections for the run event stream.
type EventHub interface {
	Serve(conn websocket.Connection, traceID string) *websocket.Client
}

// EventsHandler upgrades GET /api/v1/events to a WebSocket carrying run events.
type EventsHandler struct {
	hub          EventHub
	upgrader     gws.Upgrader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewEventsHandler creates an events handler. A browser Origin must be in
// allowedOrigins, or match the request host when the list is empty.
func NewEventsHandler(hub EventHub, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EventsHandler {
	h := &EventsHandler{
		hub:          hub,
		logger:       logger.With(slog.String("component", "events_handler")),
		errorHandler: errorHandler,
	}
	h.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(allowedOrigins) == 0 {
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			}
			if slices.Contains(allowedOrigins, origin) {
				return true
			}
			h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			h.errorHandler.HandleError(w, r,
				apierrors.New(status, "UPGRADE_FAILED", fmt.Sprintf("WebSocket upgrade failed: %v", reason)))
		},
	}
	return h
}

// ServeHTTP handles GET /api/v1/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied.
		return
	}
	client := h.hub.Serve(websocket.NewConnectionWrapper(conn), middleware.GetReqID(r.Context()))
	h.logger.InfoContext(r.Context(), "Event stream opened",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
