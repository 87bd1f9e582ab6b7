package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// UserService serves the account CRUD surface used by the front-end.
type UserService interface {
	List(ctx context.Context) ([]dto.UserResponse, error)
	GetByID(ctx context.Context, id uint) (dto.UserResponse, error)
	IDByUsername(ctx context.Context, username string) (uint, error)
	Update(ctx context.Context, id uint, req dto.UserUpdateRequest) error
	Delete(ctx context.Context, id uint) error
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService creates the account service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		response, err := s.withBlockLists(ctx, user)
		if err != nil {
			return nil, err
		}
		out = append(out, response)
	}
	return out, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return s.withBlockLists(ctx, user)
}

func (s *userService) IDByUsername(ctx context.Context, username string) (uint, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *userService) Update(ctx context.Context, id uint, req dto.UserUpdateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}

	return s.users.Update(ctx, &user)
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	return s.users.Delete(ctx, id)
}

func (s *userService) withBlockLists(ctx context.Context, user models.User) (dto.UserResponse, error) {
	blocked, err := s.users.BlockedUsers(ctx, user.Username)
	if err != nil {
		return dto.UserResponse{}, err
	}
	blockedBy, err := s.users.BlockedBy(ctx, user.Username)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user, blocked, blockedBy), nil
}
