package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// ChatDeletedNotifier pushes a deletion notice to connected clients.
type ChatDeletedNotifier interface {
	BroadcastChatDeleted(id uint)
}

// ChatService serves the HTTP chat surface: full logs for the chat list views
// and the delete operations behind the admin controls.
type ChatService interface {
	ListPrivate(ctx context.Context) ([]dto.PrivateChatResponse, error)
	ListGroup(ctx context.Context) ([]dto.GroupChatResponse, error)
	DeletePrivate(ctx context.Context, id uint) error
	DeleteGroup(ctx context.Context, id uint) error
}

type chatService struct {
	privates repository.PrivateChatRepository
	groups   repository.GroupChatRepository
	notifier ChatDeletedNotifier
	logger   zerolog.Logger
}

// NewChatService creates the HTTP chat service.
func NewChatService(
	privates repository.PrivateChatRepository,
	groups repository.GroupChatRepository,
	notifier ChatDeletedNotifier,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		privates: privates,
		groups:   groups,
		notifier: notifier,
		logger:   logger.With().Str("component", "chat_service").Logger(),
	}
}

func (s *chatService) ListPrivate(ctx context.Context) ([]dto.PrivateChatResponse, error) {
	chats, err := s.privates.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewPrivateChatResponseSlice(chats), nil
}

func (s *chatService) ListGroup(ctx context.Context) ([]dto.GroupChatResponse, error) {
	chats, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewGroupChatResponseSlice(chats), nil
}

func (s *chatService) DeletePrivate(ctx context.Context, id uint) error {
	if err := s.privates.Delete(ctx, id); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.BroadcastChatDeleted(id)
	}
	s.logger.Info().Uint("chat_id", id).Msg("private chat deleted")
	return nil
}

func (s *chatService) DeleteGroup(ctx context.Context, id uint) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.BroadcastChatDeleted(id)
	}
	s.logger.Info().Uint("group_id", id).Msg("group chat deleted")
	return nil
}
