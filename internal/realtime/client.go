package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/observability"
)

const pingInterval = 30 * time.Second

// Client wraps one live websocket session. It owns the write side through a
// buffered send channel so broadcasts never block on a slow connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan dto.OutboundEvent
	closed chan struct{}
	once   sync.Once
	logger zerolog.Logger

	mu    sync.Mutex
	rooms map[string]struct{}
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn, sendBuffer int, logger zerolog.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}

	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan dto.OutboundEvent, sendBuffer),
		closed: make(chan struct{}),
		logger: logger.With().Str("component", "socket_client").Str("conn_id", id).Logger(),
		rooms:  make(map[string]struct{}),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues an event for delivery, dropping it if the client cannot keep up.
func (c *Client) Send(event dto.OutboundEvent) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- event:
	default:
		observability.MessagesDropped().WithLabelValues(event.Event).Inc()
		c.logger.Warn().Str("event", event.Event).Msg("dropping event for slow client")
	}
}

// TrackRoom records a transport subscription on the client side.
func (c *Client) TrackRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
}

// ForgetRoom removes a tracked subscription.
func (c *Client) ForgetRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

// Rooms lists the rooms this connection is subscribed to.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// ReadPump reads envelopes until the connection drops and hands each one to
// handle. It closes the client on exit.
func (c *Client) ReadPump(handle func(dto.SocketEnvelope)) {
	defer c.Close()

	for {
		var envelope dto.SocketEnvelope
		if err := c.conn.ReadJSON(&envelope); err != nil {
			c.logger.Debug().Err(err).Msg("socket read loop ended")
			return
		}
		handle(envelope)
	}
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	defer c.Close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug().Err(err).Msg("socket write loop terminated")
				return
			}
		case <-time.After(pingInterval):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.logger.Debug().Err(err).Msg("socket ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Close tears the connection down exactly once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Outbox exposes the queued outbound events. The write pump drains it onto
// the wire; tests consume it directly.
func (c *Client) Outbox() <-chan dto.OutboundEvent {
	return c.send
}

// Done reports whether the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}
