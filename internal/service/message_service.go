package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/observability"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
)

const defaultCacheTTL = 30 * time.Minute

// ErrBlockedPair indicates a private message between users with a block
// relation in either direction. The send is suppressed without persisting.
var ErrBlockedPair = errors.New("message suppressed by block relation")

// ErrGroupNotFound indicates a group message addressed to a name with no
// stored group behind it.
var ErrGroupNotFound = errors.New("group not found")

// MessageService is the routing engine for private and group messages: it
// persists each message, then computes the recipient set and delivers.
type MessageService interface {
	SendPrivate(ctx context.Context, payload dto.SendMessagePayload) error
	SendGroup(ctx context.Context, payload dto.SendGroupMessagePayload) error
	Start(ctx context.Context)
}

type messageService struct {
	chats       repository.PrivateChatRepository
	groups      repository.GroupChatRepository
	users       repository.UserRepository
	activity    repository.ActivityLogRepository
	presence    *realtime.PresenceRegistry
	rooms       *realtime.RoomManager
	hub         *realtime.Hub
	redis       *redis.Client
	redisStream string
	redisCache  string
	cacheTTL    time.Duration
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	nodeID      string
}

// routedEvent is the cross-node relay envelope published after a message has
// been persisted by the originating node.
type routedEvent struct {
	Source     string              `json:"source"`
	Kind       string              `json:"kind"`
	ReceiverID uint                `json:"receiver_id,omitempty"`
	GroupName  string              `json:"group_name,omitempty"`
	Delivery   dto.MessageDelivery `json:"delivery"`
	Ping       dto.ActivityPing    `json:"ping"`
	SentAt     time.Time           `json:"sent_at"`
}

// NewMessageService creates the message routing engine.
func NewMessageService(
	chats repository.PrivateChatRepository,
	groups repository.GroupChatRepository,
	users repository.UserRepository,
	activity repository.ActivityLogRepository,
	presence *realtime.PresenceRegistry,
	rooms *realtime.RoomManager,
	hub *realtime.Hub,
	redisClient *redis.Client,
	natsConn *nats.Conn,
	channelBase string,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":messages"
		cachePrefix = channelBase + ":messages:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".messages"
	}

	return &messageService{
		chats:       chats,
		groups:      groups,
		users:       users,
		activity:    activity,
		presence:    presence,
		rooms:       rooms,
		hub:         hub,
		redis:       redisClient,
		redisStream: streamChannel,
		redisCache:  cachePrefix,
		cacheTTL:    cacheTTL,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		sanitizer:   sanitizer,
		logger:      logger.With().Str("component", "message_service").Logger(),
		tracer:      otel.Tracer("github.com/chatly-app/chatly-api/internal/service/message"),
		nodeID:      uuid.NewString(),
	}
}

func (s *messageService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// SendPrivate routes a one-to-one message. The durable write completes before
// any delivery broadcast; a block in either direction suppresses the send
// entirely.
func (s *messageService) SendPrivate(ctx context.Context, payload dto.SendMessagePayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return fmt.Errorf("message content empty after sanitization")
	}

	blocked, err := s.users.IsBlockedEitherWay(ctx, payload.From, payload.To)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlockedPair
	}

	sentAt := payload.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	key := repository.PrivateChatKey(payload.From, payload.To)

	spanCtx, span := s.tracer.Start(ctx, "message.private", trace.WithAttributes(
		attribute.String("chat.key", key),
		attribute.String("chat.from", payload.From),
	))
	defer span.End()

	chat, err := s.chats.FindOrCreateByKey(spanCtx, key)
	if err != nil {
		span.RecordError(err)
		return err
	}

	message := models.PrivateMessage{From: payload.From, Content: clean, SentAt: sentAt}
	if err := s.chats.AppendMessage(spanCtx, chat.ID, &message); err != nil {
		span.RecordError(err)
		return err
	}

	ping := dto.ActivityPing{From: payload.From}
	delivery := dto.MessageDelivery{Content: clean, From: payload.From, Date: sentAt}

	// Global activity ping: scoped to everyone on purpose, content excluded.
	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: ping})
	s.recordActivity(spanCtx, dto.EventLastMessageSent, map[string]interface{}{"from": payload.From, "chat": key})
	s.cacheLastDelivery(spanCtx, key, delivery)

	if entry, ok := s.presence.Lookup(payload.ReceiverID); ok {
		s.hub.SendToConn(entry.ConnID, dto.OutboundEvent{Event: dto.EventReceiveMessage, Data: delivery})
	}

	event := routedEvent{
		Source:     s.nodeID,
		Kind:       "private",
		ReceiverID: payload.ReceiverID,
		Delivery:   delivery,
		Ping:       ping,
		SentAt:     time.Now().UTC(),
	}
	if err := s.publish(spanCtx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish private message event")
	}

	observability.MessagesSent().WithLabelValues("private").Inc()
	return nil
}

// SendGroup routes a message to every connection subscribed to the group's
// room. A missing group fails cleanly instead of resurrecting it.
func (s *messageService) SendGroup(ctx context.Context, payload dto.SendGroupMessagePayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return fmt.Errorf("message content empty after sanitization")
	}

	sentAt := payload.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	spanCtx, span := s.tracer.Start(ctx, "message.group", trace.WithAttributes(
		attribute.String("chat.group", payload.GroupName),
		attribute.String("chat.from", payload.From),
	))
	defer span.End()

	group, err := s.groups.FindByName(spanCtx, payload.GroupName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, payload.GroupName)
		}
		span.RecordError(err)
		return err
	}

	message := models.GroupMessage{From: payload.From, Content: clean, Action: models.GroupActionMessage, SentAt: sentAt}
	if err := s.groups.AppendMessage(spanCtx, group.ID, &message); err != nil {
		span.RecordError(err)
		return err
	}

	ping := dto.ActivityPing{From: payload.From, GroupName: payload.GroupName}
	delivery := dto.MessageDelivery{Content: clean, From: payload.From, Date: sentAt}

	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: ping})
	s.recordActivity(spanCtx, dto.EventLastMessageSent, map[string]interface{}{"from": payload.From, "group": payload.GroupName})
	s.cacheLastDelivery(spanCtx, payload.GroupName, delivery)

	s.rooms.Broadcast(payload.GroupName, dto.OutboundEvent{Event: dto.EventReceiveGroupMessage, Data: delivery})

	event := routedEvent{
		Source:    s.nodeID,
		Kind:      "group",
		GroupName: payload.GroupName,
		Delivery:  delivery,
		Ping:      ping,
		SentAt:    time.Now().UTC(),
	}
	if err := s.publish(spanCtx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish group message event")
	}

	observability.MessagesSent().WithLabelValues("group").Inc()
	return nil
}

func (s *messageService) recordActivity(ctx context.Context, event string, payload map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := models.ActivityLog{Event: event, Payload: datatypes.JSONMap(payload)}
	if err := s.activity.Append(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record activity")
	}
}

func (s *messageService) cacheLastDelivery(ctx context.Context, chatKey string, delivery dto.MessageDelivery) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(delivery)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal delivery for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, chatKey)
	if err := s.redis.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache last delivery")
	}
}

func (s *messageService) publish(ctx context.Context, event routedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *messageService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("message redis subscription closed")
			return
		}
		s.handleRelay([]byte(msg.Payload))
	}
}

func (s *messageService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "chatly-messages", func(msg *nats.Msg) {
		s.handleRelay(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats message subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain nats message subscription")
		}
	}()
}

// handleRelay re-delivers an event persisted by another node to the clients
// connected locally.
func (s *messageService) handleRelay(data []byte) {
	var event routedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid relayed message event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.BroadcastAll(dto.OutboundEvent{Event: dto.EventLastMessageSent, Data: event.Ping})

	switch event.Kind {
	case "private":
		if entry, ok := s.presence.Lookup(event.ReceiverID); ok {
			s.hub.SendToConn(entry.ConnID, dto.OutboundEvent{Event: dto.EventReceiveMessage, Data: event.Delivery})
		}
	case "group":
		s.rooms.Broadcast(event.GroupName, dto.OutboundEvent{Event: dto.EventReceiveGroupMessage, Data: event.Delivery})
	default:
		s.logger.Warn().Str("kind", event.Kind).Msg("unknown relayed event kind")
	}
}
