package realtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chatly-app/chatly-api/internal/dto"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(nil, 8, zerolog.Nop())
	t.Cleanup(client.Close)
	return client
}

func drainOutbox(client *Client) []dto.OutboundEvent {
	var events []dto.OutboundEvent
	for {
		select {
		case event := <-client.Outbox():
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestSubscribeTwiceDeliversOnce(t *testing.T) {
	rooms := NewRoomManager(zerolog.Nop())
	client := newTestClient(t)

	rooms.Subscribe(client, "gophers", "alice")
	rooms.Subscribe(client, "gophers", "alice")

	rooms.Broadcast("gophers", dto.OutboundEvent{Event: "receive_group_message"})

	events := drainOutbox(client)
	require.Len(t, events, 1)
	require.Equal(t, "receive_group_message", events[0].Event)
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	rooms := NewRoomManager(zerolog.Nop())
	first := newTestClient(t)
	second := newTestClient(t)
	outsider := newTestClient(t)

	rooms.Subscribe(first, "gophers", "alice")
	rooms.Subscribe(second, "gophers", "bob")
	rooms.Subscribe(outsider, "rustaceans", "carol")

	rooms.Broadcast("gophers", dto.OutboundEvent{Event: "receive_group_message"})

	require.Len(t, drainOutbox(first), 1)
	require.Len(t, drainOutbox(second), 1)
	require.Empty(t, drainOutbox(outsider))
}

func TestRemoveMemberDropsEmptyRoom(t *testing.T) {
	rooms := NewRoomManager(zerolog.Nop())
	client := newTestClient(t)

	rooms.Subscribe(client, "gophers", "alice")
	require.Equal(t, []string{"alice"}, rooms.Members("gophers"))

	rooms.RemoveMember(client, "gophers", "alice")

	require.Nil(t, rooms.Members("gophers"))
	require.False(t, rooms.Subscribed(client, "gophers"))
	require.Empty(t, client.Rooms())
}

func TestUnsubscribeKeepsMembership(t *testing.T) {
	rooms := NewRoomManager(zerolog.Nop())
	client := newTestClient(t)

	rooms.Subscribe(client, "gophers", "alice")
	rooms.Unsubscribe(client, "gophers")

	// alice is still a member, just without a live connection.
	require.Equal(t, []string{"alice"}, rooms.Members("gophers"))
	require.False(t, rooms.Subscribed(client, "gophers"))

	rooms.Broadcast("gophers", dto.OutboundEvent{Event: "receive_group_message"})
	require.Empty(t, drainOutbox(client))
}

func TestDropConnectionCleansEveryRoom(t *testing.T) {
	rooms := NewRoomManager(zerolog.Nop())
	client := newTestClient(t)
	other := newTestClient(t)

	rooms.Subscribe(client, "gophers", "alice")
	rooms.Subscribe(client, "rustaceans", "alice")
	rooms.Subscribe(other, "gophers", "bob")

	rooms.DropConnection(client, "alice")

	require.Empty(t, client.Rooms())
	require.Equal(t, []string{"bob"}, rooms.Members("gophers"))
	require.Nil(t, rooms.Members("rustaceans"))
}
