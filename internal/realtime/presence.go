package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/observability"
)

// Entry records one online user: the connection currently bound to the user
// id and the username it entered with.
type Entry struct {
	ConnID   string
	Username string
}

// PresenceRegistry tracks which users hold a live connection. It keeps at most
// one entry per user id; a new connection for the same user overwrites the old
// one (last writer wins, a deliberate policy carried over from the product).
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[uint]Entry
	logger  zerolog.Logger
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry(logger zerolog.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[uint]Entry),
		logger:  logger.With().Str("component", "presence").Logger(),
	}
}

// SetOnline binds the user id to the connection, replacing any prior entry.
func (p *PresenceRegistry) SetOnline(userID uint, connID, username string) {
	p.mu.Lock()
	p.entries[userID] = Entry{ConnID: connID, Username: username}
	size := len(p.entries)
	p.mu.Unlock()

	observability.OnlineUsers().Set(float64(size))
	p.logger.Debug().Uint("user_id", userID).Str("conn_id", connID).Str("username", username).Msg("user online")
}

// SetOffline removes the entry bound to the connection. Connections that never
// entered the chat produce no entry, so a miss is not an error.
func (p *PresenceRegistry) SetOffline(connID string) {
	p.mu.Lock()
	var removed *Entry
	for userID, entry := range p.entries {
		if entry.ConnID == connID {
			e := entry
			removed = &e
			delete(p.entries, userID)
			break
		}
	}
	size := len(p.entries)
	p.mu.Unlock()

	observability.OnlineUsers().Set(float64(size))
	if removed != nil {
		p.logger.Debug().Str("conn_id", connID).Str("username", removed.Username).Msg("user offline")
	}
}

// Lookup returns the presence entry for a user id.
func (p *PresenceRegistry) Lookup(userID uint) (Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[userID]
	return entry, ok
}

// LookupByUsername scans for the entry with the given username.
func (p *PresenceRegistry) LookupByUsername(username string) (Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, entry := range p.entries {
		if entry.Username == username {
			return entry, true
		}
	}
	return Entry{}, false
}

// ListOnline returns the usernames of all online users. Order is map
// iteration order and carries no meaning.
func (p *PresenceRegistry) ListOnline() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.entries))
	for _, entry := range p.entries {
		out = append(out, entry.Username)
	}
	return out
}
