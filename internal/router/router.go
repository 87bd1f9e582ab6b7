package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chatly-app/chatly-api/internal/config"
	"github.com/chatly-app/chatly-api/internal/handler"
	"github.com/chatly-app/chatly-api/internal/middleware"
	"github.com/chatly-app/chatly-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler   *handler.UserHandler
	ChatHandler   *handler.ChatHandler
	SocketHandler *handler.SocketHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Accounts: registration and login stay open, login is rate limited.
	if deps.UserHandler != nil {
		users := app.Group("/users", middleware.RateLimit("users", 30, time.Minute))
		deps.UserHandler.Register(users)
	}

	// Chat logs and deletes require a valid bearer token.
	if deps.ChatHandler != nil {
		chats := app.Group("/chats", jwtMiddleware)
		deps.ChatHandler.Register(chats)
	}

	// Socket endpoint; per-event credentials are checked on the socket itself.
	if deps.SocketHandler != nil {
		deps.SocketHandler.Register(app)
	}
}
