package repository

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatly-app/chatly-api/internal/models"
)

// PrivateChatKey returns the canonical identifier for a pair of usernames,
// independent of which side initiated the chat.
func PrivateChatKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "-")
}

// PrivateChatRepository persists one-to-one conversations and their logs.
type PrivateChatRepository interface {
	FindOrCreateByKey(ctx context.Context, customID string) (models.PrivateChat, error)
	AppendMessage(ctx context.Context, chatID uint, message *models.PrivateMessage) error
	GetByKey(ctx context.Context, customID string) (models.PrivateChat, error)
	List(ctx context.Context) ([]models.PrivateChat, error)
	Delete(ctx context.Context, id uint) error
}

type privateChatRepository struct {
	db *gorm.DB
}

// NewPrivateChatRepository constructs a private chat repository backed by GORM.
func NewPrivateChatRepository(db *gorm.DB) PrivateChatRepository {
	return &privateChatRepository{db: db}
}

// FindOrCreateByKey resolves the chat for a canonical key, creating it lazily.
// Concurrent creations for the same pair collapse onto one row through the
// unique index on custom_id: the losing insert is a no-op and the follow-up
// fetch returns the winner.
func (r *privateChatRepository) FindOrCreateByKey(ctx context.Context, customID string) (models.PrivateChat, error) {
	var chat models.PrivateChat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := models.PrivateChat{CustomID: customID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&create).Error; err != nil {
			return err
		}
		return tx.Where("custom_id = ?", customID).First(&chat).Error
	})
	if err != nil {
		return models.PrivateChat{}, err
	}
	return chat, nil
}

func (r *privateChatRepository) AppendMessage(ctx context.Context, chatID uint, message *models.PrivateMessage) error {
	message.PrivateChatID = chatID
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *privateChatRepository) GetByKey(ctx context.Context, customID string) (models.PrivateChat, error) {
	var chat models.PrivateChat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("private_messages.id")
		}).
		Where("custom_id = ?", customID).
		First(&chat).Error
	if err != nil {
		return models.PrivateChat{}, err
	}
	return chat, nil
}

func (r *privateChatRepository) List(ctx context.Context) ([]models.PrivateChat, error) {
	var chats []models.PrivateChat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("private_messages.id")
		}).
		Order("id").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// Delete removes the chat and its log together.
func (r *privateChatRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("private_chat_id = ?", id).Delete(&models.PrivateMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PrivateChat{}, id).Error
	})
}
