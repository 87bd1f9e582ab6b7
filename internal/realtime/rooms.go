package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/dto"
)

type room struct {
	clients map[*Client]struct{}
	members map[string]struct{}
}

// RoomManager maps group names to the connections subscribed for group
// traffic. Membership here is transport-level: a username is present only
// while it has a live, subscribed connection; offline members resubscribe on
// their next rejoin.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	logger zerolog.Logger
}

// NewRoomManager creates an empty room manager.
func NewRoomManager(logger zerolog.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*room),
		logger: logger.With().Str("component", "rooms").Logger(),
	}
}

func (m *RoomManager) getOrCreate(name string) *room {
	if r, ok := m.rooms[name]; ok {
		return r
	}
	r := &room{clients: make(map[*Client]struct{}), members: make(map[string]struct{})}
	m.rooms[name] = r
	return r
}

// Subscribe adds the connection to the room and records the username in the
// member set. Subscribing twice is a no-op.
func (m *RoomManager) Subscribe(client *Client, name, username string) {
	m.mu.Lock()
	r := m.getOrCreate(name)
	r.clients[client] = struct{}{}
	r.members[username] = struct{}{}
	m.mu.Unlock()

	client.TrackRoom(name)
	m.logger.Debug().Str("room", name).Str("username", username).Msg("subscribed to room")
}

// Unsubscribe detaches the connection from the room regardless of member-set
// bookkeeping. Transport-level leave always succeeds.
func (m *RoomManager) Unsubscribe(client *Client, name string) {
	m.mu.Lock()
	if r, ok := m.rooms[name]; ok {
		delete(r.clients, client)
		if len(r.clients) == 0 && len(r.members) == 0 {
			delete(m.rooms, name)
		}
	}
	m.mu.Unlock()

	client.ForgetRoom(name)
}

// RemoveMember unsubscribes the connection and removes the username from the
// member set, dropping the room entry once it is empty.
func (m *RoomManager) RemoveMember(client *Client, name, username string) {
	m.mu.Lock()
	if r, ok := m.rooms[name]; ok {
		if client != nil {
			delete(r.clients, client)
		}
		delete(r.members, username)
		if len(r.members) == 0 {
			delete(m.rooms, name)
		}
	}
	m.mu.Unlock()

	if client != nil {
		client.ForgetRoom(name)
	}
}

// DropConnection removes a disconnected client from every room it joined.
// Safe to call more than once; cleanup is idempotent.
func (m *RoomManager) DropConnection(client *Client, username string) {
	for _, name := range client.Rooms() {
		m.RemoveMember(client, name, username)
	}
}

// Broadcast fans one event out to every connection subscribed to the room.
func (m *RoomManager) Broadcast(name string, event dto.OutboundEvent) {
	m.mu.RLock()
	r, ok := m.rooms[name]
	if !ok {
		m.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		client.Send(event)
	}
}

// Members returns the usernames currently subscribed to the room.
func (m *RoomManager) Members(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[name]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(r.members))
	for username := range r.members {
		out = append(out, username)
	}
	return out
}

// Subscribed reports whether the connection is attached to the room.
func (m *RoomManager) Subscribed(client *Client, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[name]
	if !ok {
		return false
	}
	_, ok = r.clients[client]
	return ok
}
