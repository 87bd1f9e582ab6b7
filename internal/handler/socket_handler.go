package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/middleware"
	"github.com/chatly-app/chatly-api/internal/service"
)

// SocketHandler wires the websocket upgrade endpoint. Authentication happens
// per-event on the socket itself, matching the clients that attach the token
// to each payload.
type SocketHandler struct {
	service *service.SocketService
	logger  zerolog.Logger
}

// NewSocketHandler creates a socket handler instance.
func NewSocketHandler(service *service.SocketService, logger zerolog.Logger) *SocketHandler {
	return &SocketHandler{
		service: service,
		logger:  logger.With().Str("component", "socket_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *SocketHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *SocketHandler) handleConnection(conn *websocket.Conn) {
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	h.logger.Info().Msg("socket connected")
	h.service.ServeConnection(conn, baseCtx)
	h.logger.Info().Msg("socket disconnected")
}
