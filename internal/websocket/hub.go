package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/precrastine/internal/event"
)

// Message is a change notification pushed to browsers so they can refetch.
type Message struct {
	Type       string `json:"type"`
	Entity     string `json:"entity"`
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
	IdentityID string `json:"identityId,omitempty"`
}

// FromEvent converts a store event into a feed message.
func FromEvent(e event.Event) Message {
	return Message{
		Type:       e.Type,
		Entity:     e.Entity,
		Action:     e.Action,
		ID:         e.ID,
		IdentityID: e.IdentityID,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Subscribe forwards every event published on bus to the connected clients.
func (h *Hub) Subscribe(bus *event.Bus) event.Subscription {
	return bus.Subscribe(func(e event.Event) {
		h.Broadcast(FromEvent(e))
	})
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client connected as msg's identity. A message
// without an identity goes to everyone.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if msg.IdentityID != "" && c.identityID != msg.IdentityID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "identity_id", c.identityID, "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
