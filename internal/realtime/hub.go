// Package realtime fans lifecycle notifications out to connected WebSocket clients.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to clients.
const (
	EventCreated = "event_created"
	EventUpdated = "event_updated"
	EventDeleted = "event_deleted"
	Notification = "notification"
)

// NotificationPayload is the body of a notification event.
type NotificationPayload struct {
	EventID int64  `json:"eventId,omitempty"`
	Message string `json:"message"`
}

// Hub maintains the set of connected clients and broadcasts messages to all of them.
// Delivery is best effort: no retry, no persistence, at most once per client.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID), zap.Int("clients", count))
}

// Unregister removes a client and stops its write loop. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.closeOnce.Do(func() { close(c.done) })
	h.logger.Info("client disconnected", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID), zap.Int("clients", count))
}

// Broadcast sends event with payload to every connected client. Clients whose
// send buffer is full miss the message. With no clients it does nothing.
func (h *Hub) Broadcast(event string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("broadcast dropped for slow clients", zap.String("event", event), zap.Int("dropped", dropped))
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
