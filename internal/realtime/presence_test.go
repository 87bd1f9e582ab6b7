package realtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetOnlineKeepsOneEntryPerUser(t *testing.T) {
	presence := NewPresenceRegistry(zerolog.Nop())

	presence.SetOnline(7, "conn-a", "alice")
	presence.SetOnline(7, "conn-b", "alice")

	entry, ok := presence.Lookup(7)
	require.True(t, ok)
	require.Equal(t, "conn-b", entry.ConnID)
	require.Equal(t, []string{"alice"}, presence.ListOnline())
}

func TestSetOfflineRemovesOnlyTheMatchingConnection(t *testing.T) {
	presence := NewPresenceRegistry(zerolog.Nop())

	presence.SetOnline(7, "conn-a", "alice")
	presence.SetOnline(9, "conn-b", "bob")

	presence.SetOffline("conn-a")

	_, ok := presence.Lookup(7)
	require.False(t, ok)

	entry, ok := presence.Lookup(9)
	require.True(t, ok)
	require.Equal(t, "bob", entry.Username)
}

func TestSetOfflineIgnoresUnknownConnections(t *testing.T) {
	presence := NewPresenceRegistry(zerolog.Nop())

	presence.SetOnline(7, "conn-a", "alice")
	presence.SetOffline("never-entered")

	require.Equal(t, []string{"alice"}, presence.ListOnline())
}

func TestStaleOfflineDoesNotEvictTheReplacementConnection(t *testing.T) {
	presence := NewPresenceRegistry(zerolog.Nop())

	presence.SetOnline(7, "conn-a", "alice")
	presence.SetOnline(7, "conn-b", "alice")

	// The old connection disconnects after being replaced.
	presence.SetOffline("conn-a")

	entry, ok := presence.Lookup(7)
	require.True(t, ok)
	require.Equal(t, "conn-b", entry.ConnID)
}

func TestLookupByUsername(t *testing.T) {
	presence := NewPresenceRegistry(zerolog.Nop())

	presence.SetOnline(7, "conn-a", "alice")

	entry, ok := presence.LookupByUsername("alice")
	require.True(t, ok)
	require.Equal(t, "conn-a", entry.ConnID)

	_, ok = presence.LookupByUsername("bob")
	require.False(t, ok)
}
