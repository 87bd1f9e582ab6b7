package realtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chatly-app/chatly-api/internal/dto"
)

func TestHubRegisterAndLookup(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(t)

	hub.Register(client)

	found, ok := hub.Client(client.ID())
	require.True(t, ok)
	require.Same(t, client, found)

	hub.Unregister(client)
	_, ok = hub.Client(client.ID())
	require.False(t, ok)
}

func TestBroadcastAllReachesEveryConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	first := newTestClient(t)
	second := newTestClient(t)

	hub.Register(first)
	hub.Register(second)

	hub.BroadcastAll(dto.OutboundEvent{Event: "online_users"})

	require.Len(t, drainOutbox(first), 1)
	require.Len(t, drainOutbox(second), 1)
}

func TestSendToConnTargetsOneConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	target := newTestClient(t)
	bystander := newTestClient(t)

	hub.Register(target)
	hub.Register(bystander)

	hub.SendToConn(target.ID(), dto.OutboundEvent{Event: "receive_message"})
	hub.SendToConn("no-such-conn", dto.OutboundEvent{Event: "receive_message"})

	require.Len(t, drainOutbox(target), 1)
	require.Empty(t, drainOutbox(bystander))
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(t)
	hub.Register(client)

	client.Close()
	hub.BroadcastAll(dto.OutboundEvent{Event: "online_users"})

	require.Empty(t, drainOutbox(client))
}
