package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Message is the frame pushed to dashboard clients
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hub tracks connected clients and fans messages out to them
type Hub struct {
	clients map[string]*Client

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte

	done   chan struct{}
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a hub; call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub channels until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.Register:
			h.mu.Lock()
			// A reconnect replaces the previous connection for the same id.
			if old, ok := h.clients[c.ID]; ok && old != c {
				close(old.Send)
			}
			h.clients[c.ID] = c
			h.mu.Unlock()
			h.logger.Debug("Dashboard client connected", zap.String("client_id", c.ID))

		case c := <-h.Unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				delete(h.clients, c.ID)
				close(c.Send)
			}
			h.mu.Unlock()

		case msg := <-h.Broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					h.logger.Warn("Dashboard client too slow, dropping frame", zap.String("client_id", c.ID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToAll queues a typed message for every client. It never blocks the caller.
func (h *Hub) SendToAll(msgType string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Message{Type: msgType, Data: raw})
	if err != nil {
		return err
	}
	select {
	case h.Broadcast <- frame:
	default:
		h.logger.Warn("Dashboard broadcast queue full, dropping frame", zap.String("type", msgType))
	}
	return nil
}

// GetClient returns the client registered under id
func (h *Hub) GetClient(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
