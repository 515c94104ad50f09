// Package wsfeed broadcasts strategy events to WebSocket subscribers.
package wsfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/oxarb/flasharb/business/strategy/domain"
	"github.com/oxarb/flasharb/internal/logger"
)

const (
	// writeTimeout bounds one delivery; a stuck subscriber is dropped
	// rather than allowed to stall the hub.
	writeTimeout = 5 * time.Second

	// clientBuffer is the per-subscriber queue. When it overflows the
	// lowest-priority events are dropped first.
	clientBuffer = 64
)

type client struct {
	events chan domain.Event
	done   chan struct{}
}

// Hub fans strategy events out to connected WebSocket subscribers.
// Implements the EventSink port; Emit never blocks the caller.
type Hub struct {
	logger logger.LoggerInterface

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(log logger.LoggerInterface) *Hub {
	return &Hub{
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// Emit queues the event for every subscriber. Full subscriber queues
// drop the incoming event unless it is high priority, in which case one
// queued event is evicted to make room.
func (h *Hub) Emit(ctx context.Context, event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.events <- event:
		default:
			if event.Priority >= domain.PriorityHigh {
				select {
				case <-c.events:
				default:
				}
				select {
				case c.events <- event:
				default:
				}
			}
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &client{
		events: make(chan domain.Event, clientBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
}
