package dto

import (
	"time"

	"github.com/chatly-app/chatly-api/internal/models"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=4,max=128"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// LoginResponse carries the bearer credential clients attach to socket events.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
}

// UserUpdateRequest changes mutable account fields.
type UserUpdateRequest struct {
	Password *string `json:"password" validate:"omitempty,min=4,max=128"`
}

// UserResponse is the serialized account including both block list views.
type UserResponse struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	BlockedUsers []string  `json:"blockedUsers"`
	BlockedBy    []string  `json:"blockedBy"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUserResponse converts a user model and its block lists into a DTO.
func NewUserResponse(user models.User, blocked, blockedBy []string) UserResponse {
	if blocked == nil {
		blocked = []string{}
	}
	if blockedBy == nil {
		blockedBy = []string{}
	}

	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		BlockedUsers: blocked,
		BlockedBy:    blockedBy,
		CreatedAt:    user.CreatedAt,
	}
}
