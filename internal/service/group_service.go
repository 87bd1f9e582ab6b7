package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// GroupService drives group lifecycle: create/merge, membership changes,
// transport resubscription and the empty-group cascade delete.
type GroupService interface {
	JoinGroup(ctx context.Context, payload dto.JoinGroupPayload) error
	RejoinGroups(ctx context.Context, client *realtime.Client, payload dto.RejoinGroupsPayload) error
	AddUsers(ctx context.Context, payload dto.AddUsersToGroupPayload) error
	LeaveGroup(ctx context.Context, client *realtime.Client, payload dto.LeaveGroupPayload) error
}

type groupService struct {
	groups    repository.GroupChatRepository
	presence  *realtime.PresenceRegistry
	rooms     *realtime.RoomManager
	hub       *realtime.Hub
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGroupService creates the group lifecycle service.
func NewGroupService(
	groups repository.GroupChatRepository,
	presence *realtime.PresenceRegistry,
	rooms *realtime.RoomManager,
	hub *realtime.Hub,
	validate *validator.Validate,
	logger zerolog.Logger,
) GroupService {
	return &groupService{
		groups:    groups,
		presence:  presence,
		rooms:     rooms,
		hub:       hub,
		validator: validate,
		logger:    logger.With().Str("component", "group_service").Logger(),
	}
}

// JoinGroup creates the group with its initial members, or merges into the
// existing group when the name is already taken. Online members are
// subscribed to the room immediately; offline members subscribe on their next
// rejoin.
func (s *groupService) JoinGroup(ctx context.Context, payload dto.JoinGroupPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	sentAt := payload.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	creation := models.GroupMessage{
		From:    payload.From,
		Content: fmt.Sprintf("%s has created the group", payload.From),
		SentAt:  sentAt,
	}

	_, created, err := s.groups.Create(ctx, payload.GroupName, payload.GroupMembers, creation)
	if err != nil {
		return err
	}

	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: dto.ActivityPing{From: payload.From}})

	s.subscribeOnline(ctx, payload.GroupName, payload.GroupMembers)

	s.logger.Info().
		Str("group", payload.GroupName).
		Bool("created", created).
		Int("members", len(payload.GroupMembers)).
		Msg("group join processed")
	return nil
}

// RejoinGroups restores room subscriptions for a reconnected client. The
// client supplies its group list but membership is checked against the store
// before subscribing. Repeating the call leaves subscriptions unchanged.
func (s *groupService) RejoinGroups(ctx context.Context, client *realtime.Client, payload dto.RejoinGroupsPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	if _, online := s.presence.LookupByUsername(payload.Username); !online {
		return nil
	}

	for _, groupName := range payload.Groups {
		member, err := s.groups.IsParticipant(ctx, groupName, payload.Username)
		if err != nil {
			return err
		}
		if !member {
			s.logger.Warn().
				Str("group", groupName).
				Str("username", payload.Username).
				Msg("rejoin refused, not a participant")
			continue
		}
		s.rooms.Subscribe(client, groupName, payload.Username)
	}

	s.sendGroupList(ctx, client, payload.Username)
	return nil
}

// AddUsers extends the persisted participant list, appending one synthetic
// join message per added user in the order given, then subscribes the added
// users that are online.
func (s *groupService) AddUsers(ctx context.Context, payload dto.AddUsersToGroupPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	sentAt := payload.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	joins := make([]models.GroupMessage, 0, len(payload.Users))
	for _, username := range payload.Users {
		joins = append(joins, models.GroupMessage{
			From:    username,
			Content: fmt.Sprintf("%s has joined the group", username),
			SentAt:  sentAt,
		})
	}

	if err := s.groups.AddParticipants(ctx, payload.GroupName, payload.Users, joins); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, payload.GroupName)
		}
		return err
	}

	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: dto.ActivityPing{GroupName: payload.GroupName}})

	s.subscribeOnline(ctx, payload.GroupName, payload.Users)
	return nil
}

// LeaveGroup removes the member from the persisted participant list and
// appends the synthetic leave message. When the last participant leaves, the
// group and its entire log are deleted together and clients are told the chat
// is gone. The transport unsubscribe happens regardless.
func (s *groupService) LeaveGroup(ctx context.Context, client *realtime.Client, payload dto.LeaveGroupPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	// Transport-level leave always succeeds, even when the store lookup fails.
	defer func() {
		s.rooms.RemoveMember(client, payload.GroupName, payload.Username)
	}()

	sentAt := payload.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	leave := models.GroupMessage{
		From:    payload.Username,
		Content: fmt.Sprintf("%s has left the group", payload.Username),
		SentAt:  sentAt,
	}

	deleted, groupID, err := s.groups.RemoveParticipant(ctx, payload.GroupName, payload.Username, leave)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, payload.GroupName)
		}
		return err
	}

	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: dto.ActivityPing{GroupName: payload.GroupName}})

	if deleted {
		s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventChatDeleted, Data: groupID})
		s.logger.Info().Str("group", payload.GroupName).Msg("empty group deleted")
	}

	return nil
}

// subscribeOnline attaches the connection of every listed member that is
// currently online to the group's room and pushes each one its refreshed
// group list.
func (s *groupService) subscribeOnline(ctx context.Context, groupName string, usernames []string) {
	for _, username := range usernames {
		entry, ok := s.presence.LookupByUsername(username)
		if !ok {
			continue
		}
		client, ok := s.hub.Client(entry.ConnID)
		if !ok {
			continue
		}
		s.rooms.Subscribe(client, groupName, username)
		s.sendGroupList(ctx, client, username)
	}
}

func (s *groupService) sendGroupList(ctx context.Context, client *realtime.Client, username string) {
	chats, err := s.groups.ListByMember(ctx, username)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("failed to load group list")
		return
	}

	client.Send(dto.OutboundEvent{Event: dto.EventSendGroupChats, Data: dto.NewGroupChatResponseSlice(chats)})
}
