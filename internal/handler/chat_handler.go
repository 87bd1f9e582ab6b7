package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/middleware"
	"github.com/chatly-app/chatly-api/internal/service"
	"github.com/chatly-app/chatly-api/internal/utils"
)

// ChatHandler wires the HTTP chat endpoints behind JWT auth.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/group", h.listGroup)
	router.Get("/private", h.listPrivate)
	router.Delete("/private/:id", h.deletePrivate)
	router.Delete("/group/:id", h.deleteGroup)
}

func (h *ChatHandler) listGroup(c *fiber.Ctx) error {
	chats, err := h.service.ListGroup(h.requestContext(c))
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "group chats", chats)
}

func (h *ChatHandler) listPrivate(c *fiber.Ctx) error {
	chats, err := h.service.ListPrivate(h.requestContext(c))
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "private chats", chats)
}

func (h *ChatHandler) deletePrivate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid chat id")
	}

	if err := h.service.DeletePrivate(h.requestContext(c), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "chat not found")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "chat deleted", nil)
}

func (h *ChatHandler) deleteGroup(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid chat id")
	}

	if err := h.service.DeleteGroup(h.requestContext(c), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "chat not found")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "group chat deleted", nil)
}

func (h *ChatHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}
