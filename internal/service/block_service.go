package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// BlockService maintains block relations and their effect on delivery and
// presence visibility. The relation is stored as a single directed edge row,
// so the blocker's blocked list and the blockee's blocked-by list are always
// two views of the same data.
type BlockService interface {
	Block(ctx context.Context, client *realtime.Client, payload dto.BlockUserPayload) error
	Unblock(ctx context.Context, client *realtime.Client, payload dto.UnblockUserPayload) error
	IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error)
	// VisibleOnline filters an online-user list down to what the viewer may
	// see: users blocked in either direction are omitted so their status
	// renders as neutral.
	VisibleOnline(ctx context.Context, viewer string, online []string) ([]string, error)
}

type blockService struct {
	users     repository.UserRepository
	presence  *realtime.PresenceRegistry
	hub       *realtime.Hub
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBlockService creates the blocking consistency layer.
func NewBlockService(
	users repository.UserRepository,
	presence *realtime.PresenceRegistry,
	hub *realtime.Hub,
	validate *validator.Validate,
	logger zerolog.Logger,
) BlockService {
	return &blockService{
		users:     users,
		presence:  presence,
		hub:       hub,
		validator: validate,
		logger:    logger.With().Str("component", "block_service").Logger(),
	}
}

// Block adds the edge and pushes both sides their refreshed lists: the caller
// gets its blocked list, the blockee (when online) its blocked-by list.
func (s *blockService) Block(ctx context.Context, client *realtime.Client, payload dto.BlockUserPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	if err := s.users.Block(ctx, payload.Username, payload.BlockedUser); err != nil {
		return err
	}

	if err := s.notifyBlocker(ctx, client, payload.Username, dto.EventUserBlocked); err != nil {
		return err
	}
	if err := s.notifyBlockee(ctx, payload.BlockedUserID, payload.BlockedUser, dto.EventBlockedBy); err != nil {
		return err
	}

	s.logger.Info().Str("blocker", payload.Username).Str("blocked", payload.BlockedUser).Msg("user blocked")
	return nil
}

// Unblock removes the edge with the same notification pattern.
func (s *blockService) Unblock(ctx context.Context, client *realtime.Client, payload dto.UnblockUserPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	if err := s.users.Unblock(ctx, payload.Username, payload.BlockedUser); err != nil {
		return err
	}

	if err := s.notifyBlocker(ctx, client, payload.Username, dto.EventUserUnblocked); err != nil {
		return err
	}
	if err := s.notifyBlockee(ctx, payload.BlockedUserID, payload.BlockedUser, dto.EventUnblockedBy); err != nil {
		return err
	}

	s.logger.Info().Str("blocker", payload.Username).Str("unblocked", payload.BlockedUser).Msg("user unblocked")
	return nil
}

func (s *blockService) IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error) {
	return s.users.IsBlockedEitherWay(ctx, userA, userB)
}

func (s *blockService) VisibleOnline(ctx context.Context, viewer string, online []string) ([]string, error) {
	blocked, err := s.users.BlockedUsers(ctx, viewer)
	if err != nil {
		return nil, err
	}
	blockedBy, err := s.users.BlockedBy(ctx, viewer)
	if err != nil {
		return nil, err
	}

	hidden := make(map[string]struct{}, len(blocked)+len(blockedBy))
	for _, username := range blocked {
		hidden[username] = struct{}{}
	}
	for _, username := range blockedBy {
		hidden[username] = struct{}{}
	}

	visible := make([]string, 0, len(online))
	for _, username := range online {
		if _, ok := hidden[username]; ok {
			continue
		}
		visible = append(visible, username)
	}
	return visible, nil
}

func (s *blockService) notifyBlocker(ctx context.Context, client *realtime.Client, username, event string) error {
	blocked, err := s.users.BlockedUsers(ctx, username)
	if err != nil {
		return err
	}
	if blocked == nil {
		blocked = []string{}
	}

	if client != nil {
		client.Send(dto.OutboundEvent{Event: event, Data: dto.BlockedListNotice{BlockedUsersList: blocked}})
	}
	return nil
}

func (s *blockService) notifyBlockee(ctx context.Context, blockeeID uint, blockee, event string) error {
	entry, online := s.presence.Lookup(blockeeID)
	if !online {
		return nil
	}

	blockedBy, err := s.users.BlockedBy(ctx, blockee)
	if err != nil {
		return err
	}
	if blockedBy == nil {
		blockedBy = []string{}
	}

	s.hub.SendToConn(entry.ConnID, dto.OutboundEvent{Event: event, Data: dto.BlockedByNotice{BlockedByList: blockedBy}})
	return nil
}
