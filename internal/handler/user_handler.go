package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/auth"
	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/middleware"
	"github.com/chatly-app/chatly-api/internal/service"
	"github.com/chatly-app/chatly-api/internal/utils"
)

// UserHandler wires the account endpoints including registration and login.
type UserHandler struct {
	users     service.UserService
	auth      *auth.Service
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserHandler creates a user handler instance.
func NewUserHandler(users service.UserService, authService *auth.Service, validate *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		auth:      authService,
		validator: validate,
		logger:    logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds user routes under the provided router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/id/:username", h.idByUsername)
	router.Get("/:id", h.getByID)
	router.Post("/", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Post("/login", h.login)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	users, err := h.users.List(h.requestContext(c))
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "users", users)
}

func (h *UserHandler) getByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	user, err := h.users.GetByID(h.requestContext(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "user", user)
}

func (h *UserHandler) idByUsername(c *fiber.Ctx) error {
	username := c.Params("username")

	id, err := h.users.IDByUsername(h.requestContext(c), username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "user id", id)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.auth.Register(h.requestContext(c), req); err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", nil)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.users.Update(h.requestContext(c), id, req); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "user updated", nil)
}

func (h *UserHandler) remove(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.users.Delete(h.requestContext(c), id); err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.auth.Login(h.requestContext(c), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusForbidden, "wrong credentials")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return utils.SendSuccess(c, "login successful", response)
}

func (h *UserHandler) requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func parseID(c *fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
