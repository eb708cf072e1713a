package events

import (
	"log/slog"
	"sync"
)

// Hub maintains the set of connected observers and fans events out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHub creates a hub. Run must be started in a goroutine before
// clients attach.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With("component", "events"),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("observer connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("observer disconnected", "remaining", count)

		case payload := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Client buffer full. Drop it rather than stall the turn.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow observer")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish encodes and broadcasts an event. Errors and overflow are
// logged, never surfaced: event delivery is best effort.
func (h *Hub) Publish(ev Event) {
	payload, err := encode(ev)
	if err != nil {
		h.logger.Warn("event encode failed", "kind", ev.Kind, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("event channel full, dropping", "kind", ev.Kind)
	}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
