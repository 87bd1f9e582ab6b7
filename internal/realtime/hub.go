package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/observability"
)

// Hub indexes every live connection so events can be addressed to one
// connection or fanned out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("component", "socket_hub").Logger(),
	}
}

// Register adds a connection to the index.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	size := len(h.clients)
	h.mu.Unlock()

	observability.SocketConnections().Set(float64(size))
	h.logger.Debug().Str("conn_id", client.ID()).Int("connections", size).Msg("connection registered")
}

// Unregister removes a connection from the index. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client.ID())
	size := len(h.clients)
	h.mu.Unlock()

	observability.SocketConnections().Set(float64(size))
	h.logger.Debug().Str("conn_id", client.ID()).Int("connections", size).Msg("connection unregistered")
}

// Client returns the connection with the given id.
func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	return client, ok
}

// BroadcastAll sends the event to every live connection.
func (h *Hub) BroadcastAll(event dto.OutboundEvent) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.Send(event)
	}
}

// SendToConn delivers the event to a single connection if it is still alive.
func (h *Hub) SendToConn(connID string, event dto.OutboundEvent) {
	if client, ok := h.Client(connID); ok {
		client.Send(event)
	}
}

// Each invokes fn for every live connection.
func (h *Hub) Each(fn func(*Client)) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		fn(client)
	}
}
