package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// ErrInvalidCredentials is returned when a login attempt does not match a
// stored account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a bearer credential fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the resolved subject of a verified bearer credential.
type Identity struct {
	UserID   uint
	Username string
}

// TokenVerifier resolves a bearer credential to a user identity. Socket
// services depend on this interface only.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Service issues and verifies credentials and manages account registration.
type Service struct {
	users  repository.UserRepository
	secret []byte
	logger zerolog.Logger
}

// NewService creates an auth service signing tokens with the given secret.
func NewService(users repository.UserRepository, secret string, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, req dto.RegisterRequest) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Username: req.Username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}

	s.logger.Info().Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login checks the password and issues a signed access token carrying the
// username claim.
func (s *Service) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"username": user.Username,
		"iat":      time.Now().Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return dto.LoginResponse{AccessToken: signed, Username: user.Username}, nil
}

// Verify validates the token signature and confirms the subject still exists.
func (s *Service) Verify(ctx context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	username, _ := claims["username"].(string)
	if username == "" {
		return Identity{}, ErrInvalidToken
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, err
	}

	return Identity{UserID: user.ID, Username: user.Username}, nil
}
