// Package status renders engine status summaries to the log, a terminal
// panel and websocket clients.
package status

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ogxbridge/ogxbridge/engine"
)

// Hub fans the latest status out to websocket clients. It is an engine.Display.
type Hub struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	last    []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]bool),
	}
}

// Register adds a client and queues the last status for it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.logger.Debug("status client connected", "total", len(h.clients))
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("status client disconnected", "total", len(h.clients))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Show broadcasts s. Clients whose queue is full are dropped.
func (h *Hub) Show(s engine.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	data, err := json.Marshal(NewMessage(h.seq, s))
	if err != nil {
		h.logger.Error("failed to marshal status", "error", err)
		return
	}
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.drop(c)
		}
	}
}
