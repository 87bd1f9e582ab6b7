package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/auth"
	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/observability"
	"github.com/chatly-app/chatly-api/internal/realtime"
)

// SocketService owns the websocket side of the API: connection lifecycle,
// event dispatch, presence bookkeeping and the personalized online-user
// broadcast. Every credential-carrying event passes one token check here;
// invalid tokens drop the event silently, which is the product's policy.
type SocketService struct {
	verifier   auth.TokenVerifier
	messages   MessageService
	groups     GroupService
	blocks     BlockService
	presence   *realtime.PresenceRegistry
	rooms      *realtime.RoomManager
	hub        *realtime.Hub
	validator  *validator.Validate
	logger     zerolog.Logger
	sendBuffer int

	mu         sync.RWMutex
	identities map[string]auth.Identity
}

// NewSocketService creates the websocket gateway.
func NewSocketService(
	verifier auth.TokenVerifier,
	messages MessageService,
	groups GroupService,
	blocks BlockService,
	presence *realtime.PresenceRegistry,
	rooms *realtime.RoomManager,
	hub *realtime.Hub,
	validate *validator.Validate,
	sendBuffer int,
	logger zerolog.Logger,
) *SocketService {
	return &SocketService{
		verifier:   verifier,
		messages:   messages,
		groups:     groups,
		blocks:     blocks,
		presence:   presence,
		rooms:      rooms,
		hub:        hub,
		validator:  validate,
		logger:     logger.With().Str("component", "socket_service").Logger(),
		sendBuffer: sendBuffer,
		identities: make(map[string]auth.Identity),
	}
}

// ServeConnection runs the read loop for an upgraded connection and performs
// offline cleanup exactly once when it ends.
func (s *SocketService) ServeConnection(conn *websocket.Conn, baseCtx context.Context) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := realtime.NewClient(conn, s.sendBuffer, s.logger)
	s.hub.Register(client)

	go client.WritePump()
	client.ReadPump(func(envelope dto.SocketEnvelope) {
		s.dispatch(baseCtx, client, envelope)
	})

	s.disconnect(baseCtx, client)
}

// disconnect is the single offline-cleanup path, shared by transport drops
// and explicit exits. It is idempotent.
func (s *SocketService) disconnect(ctx context.Context, client *realtime.Client) {
	s.mu.Lock()
	identity, known := s.identities[client.ID()]
	delete(s.identities, client.ID())
	s.mu.Unlock()

	if known {
		s.rooms.DropConnection(client, identity.Username)
	}
	s.presence.SetOffline(client.ID())
	s.hub.Unregister(client)
	client.Close()

	s.broadcastOnlineUsers(ctx)
}

func (s *SocketService) dispatch(ctx context.Context, client *realtime.Client, envelope dto.SocketEnvelope) {
	outcome := "ok"
	defer func() {
		observability.SocketEvents().WithLabelValues(envelope.Event, outcome).Inc()
	}()

	switch envelope.Event {
	case dto.EventEnterChat:
		var payload dto.EnterChatPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		s.enterChat(ctx, client, payload)

	case dto.EventExitChat:
		s.presence.SetOffline(client.ID())
		s.broadcastOnlineUsers(ctx)

	case dto.EventSendMessage:
		var payload dto.SendMessagePayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.messages.SendPrivate(ctx, payload))

	case dto.EventJoinGroup:
		var payload dto.JoinGroupPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.groups.JoinGroup(ctx, payload))

	case dto.EventRejoinGroups:
		var payload dto.RejoinGroupsPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.groups.RejoinGroups(ctx, client, payload))

	case dto.EventSendGroupMessage:
		var payload dto.SendGroupMessagePayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.messages.SendGroup(ctx, payload))

	case dto.EventAddUsersToGroup:
		var payload dto.AddUsersToGroupPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.groups.AddUsers(ctx, payload))

	case dto.EventLeaveGroup:
		var payload dto.LeaveGroupPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		s.run(envelope.Event, &outcome, s.groups.LeaveGroup(ctx, client, payload))

	case dto.EventBlockUser:
		var payload dto.BlockUserPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		if s.run(envelope.Event, &outcome, s.blocks.Block(ctx, client, payload)) {
			s.broadcastOnlineUsers(ctx)
		}

	case dto.EventUnblockUser:
		var payload dto.UnblockUserPayload
		if !s.decode(envelope, &payload, &outcome) {
			return
		}
		if !s.verify(ctx, payload.Token, envelope.Event, &outcome) {
			return
		}
		if s.run(envelope.Event, &outcome, s.blocks.Unblock(ctx, client, payload)) {
			s.broadcastOnlineUsers(ctx)
		}

	default:
		outcome = "unknown_event"
		s.logger.Warn().Str("event", envelope.Event).Msg("unknown socket event")
	}
}

func (s *SocketService) enterChat(ctx context.Context, client *realtime.Client, payload dto.EnterChatPayload) {
	s.presence.SetOnline(payload.UserID, client.ID(), payload.Username)

	s.mu.Lock()
	s.identities[client.ID()] = auth.Identity{UserID: payload.UserID, Username: payload.Username}
	s.mu.Unlock()

	s.broadcastOnlineUsers(ctx)
}

// broadcastOnlineUsers pushes every connection a personalized online list:
// users blocked in either direction are left out so their status reads as
// neutral for that viewer.
func (s *SocketService) broadcastOnlineUsers(ctx context.Context) {
	online := s.presence.ListOnline()

	s.hub.Each(func(client *realtime.Client) {
		s.mu.RLock()
		identity, known := s.identities[client.ID()]
		s.mu.RUnlock()

		visible := online
		if known {
			filtered, err := s.blocks.VisibleOnline(ctx, identity.Username, online)
			if err != nil {
				s.logger.Warn().Err(err).Str("viewer", identity.Username).Msg("failed to filter online list")
			} else {
				visible = filtered
			}
		}

		users := make([]dto.OnlineUser, 0, len(visible))
		for _, username := range visible {
			users = append(users, dto.OnlineUser{Username: username})
		}

		client.Send(dto.OutboundEvent{Event: dto.EventOnlineUsers, Data: users})
	})
}

func (s *SocketService) decode(envelope dto.SocketEnvelope, out interface{}, outcome *string) bool {
	if len(envelope.Data) == 0 {
		*outcome = "invalid_payload"
		s.logger.Warn().Str("event", envelope.Event).Msg("missing event payload")
		return false
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		*outcome = "invalid_payload"
		s.logger.Warn().Err(err).Str("event", envelope.Event).Msg("malformed event payload")
		return false
	}
	return true
}

// verify applies the uniform token policy: a bad credential drops the event
// with no reply to the caller.
func (s *SocketService) verify(ctx context.Context, token, event string, outcome *string) bool {
	if _, err := s.verifier.Verify(ctx, token); err != nil {
		*outcome = "auth_invalid"
		s.logger.Debug().Str("event", event).Msg("dropping event with invalid token")
		return false
	}
	return true
}

// run logs a handler failure without surfacing it to the caller; the socket
// channel is fire-and-forget.
func (s *SocketService) run(event string, outcome *string, err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrBlockedPair):
		*outcome = "blocked"
		s.logger.Debug().Str("event", event).Msg("event suppressed by block relation")
	case errors.Is(err, ErrGroupNotFound):
		*outcome = "not_found"
		s.logger.Warn().Err(err).Str("event", event).Msg("event referenced missing group")
	default:
		*outcome = "error"
		s.logger.Error().Err(err).Str("event", event).Msg("socket event failed")
	}
	return false
}

// BroadcastChatDeleted tells every client a chat or group was removed so open
// views can close. Used by the HTTP delete endpoints.
func (s *SocketService) BroadcastChatDeleted(id uint) {
	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventChatDeleted, Data: id})
}
