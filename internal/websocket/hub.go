package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"fcig/internal/infrastructure"
	"fcig/internal/pipeline"
)

// Message types sent to clients.
const (
	TypeConnection   = "connection"
	TypeRunStarted   = "run:started"
	TypeRunCompleted = "run:completed"
	TypeRunFailed    = "run:failed"
)

// broadcastQueue bounds messages waiting for the hub loop.
const broadcastQueue = 64

// Message is the envelope of every message sent to clients.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type outbound struct {
	msgType string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts run events to them.
// It implements pipeline.Notifier.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool

	base    *slog.Logger
	logger  *slog.Logger
	metrics *infrastructure.IndexMetrics

	quit chan struct{}
	done chan struct{}
}

var _ pipeline.Notifier = (*Hub)(nil)

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.IndexMetrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		base:       logger,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a new goroutine.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.RecordWSConnection(ctx, 1)

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			payload, err := encode(Message{
				Type:      TypeConnection,
				Data:      map[string]string{"status": "connected", "client_id": client.id},
				Timestamp: time.Now().UTC(),
				TraceID:   client.traceID,
			})
			if err == nil {
				select {
				case client.send <- payload:
				default:
					h.logger.Warn("Failed to send connection message, client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			h.metrics.RecordWSConnection(ctx, -1)

			h.logger.InfoContext(client.context(), "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

// deliver sends msg to every client. A client whose buffer is full is
// disconnected.
func (h *Hub) deliver(ctx context.Context, msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered, dropped := 0, 0
	for client := range h.clients {
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			dropped++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	if dropped > 0 {
		h.metrics.RecordWSConnection(ctx, -dropped)
	}
	h.metrics.RecordWSBroadcast(ctx, msg.msgType, delivered, dropped)

	h.logger.Debug("Broadcast delivered",
		slog.String("type", msg.msgType),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped),
		slog.Int("payload_size", len(msg.payload)))
}

// Broadcast queues a message of msgType for every connected client. It never
// blocks: when the queue is full the message is dropped.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data any) {
	payload, err := encode(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("type", msgType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, payload: payload}:
	case <-h.quit:
	default:
		h.logger.WarnContext(ctx, "Broadcast queue full, message dropped",
			slog.String("type", msgType))
	}
}

// RunStarted announces a run that has begun.
func (h *Hub) RunStarted(ctx context.Context, startedAt time.Time) {
	h.Broadcast(ctx, TypeRunStarted, map[string]time.Time{"start_time": startedAt.UTC()})
}

// RunFinished announces the outcome of a run.
func (h *Hub) RunFinished(ctx context.Context, summary pipeline.Summary) {
	msgType := TypeRunCompleted
	if summary.Status != pipeline.StatusCompleted {
		msgType = TypeRunFailed
	}
	h.Broadcast(ctx, msgType, summary)
}

// Register adds a client to the hub. After Stop the client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.conn.Close()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the hub loop and closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.RecordWSConnection(context.Background(), -len(h.clients))
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}
