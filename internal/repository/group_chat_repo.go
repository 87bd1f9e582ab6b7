package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatly-app/chatly-api/internal/models"
)

// GroupChatRepository persists named group conversations, their participant
// lists and their message logs, synthetic lifecycle entries included.
type GroupChatRepository interface {
	// Create inserts a group with its initial members and creation message in
	// one transaction. If the name already exists the stored group is returned
	// unchanged (merge, not error).
	Create(ctx context.Context, name string, members []string, creation models.GroupMessage) (models.GroupChat, bool, error)
	FindByName(ctx context.Context, name string) (models.GroupChat, error)
	AppendMessage(ctx context.Context, groupID uint, message *models.GroupMessage) error
	AddParticipants(ctx context.Context, name string, usernames []string, joins []models.GroupMessage) error
	// RemoveParticipant drops the member and appends the leave message. When
	// the participant list becomes empty the group and its entire log are
	// deleted in the same transaction; the returned flag reports the cascade.
	RemoveParticipant(ctx context.Context, name, username string, leave models.GroupMessage) (deleted bool, groupID uint, err error)
	IsParticipant(ctx context.Context, name, username string) (bool, error)
	List(ctx context.Context) ([]models.GroupChat, error)
	ListByMember(ctx context.Context, username string) ([]models.GroupChat, error)
	ListNamesByMember(ctx context.Context, username string) ([]string, error)
	Delete(ctx context.Context, id uint) error
}

type groupChatRepository struct {
	db *gorm.DB
}

// NewGroupChatRepository constructs a group chat repository backed by GORM.
func NewGroupChatRepository(db *gorm.DB) GroupChatRepository {
	return &groupChatRepository{db: db}
}

func (r *groupChatRepository) Create(ctx context.Context, name string, members []string, creation models.GroupMessage) (models.GroupChat, bool, error) {
	var chat models.GroupChat
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := models.GroupChat{Name: name}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&insert)
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("name = ?", name).First(&chat).Error; err != nil {
			return err
		}

		// Lost the race or the name was taken: reuse the existing group.
		if result.RowsAffected == 0 || chat.ID != insert.ID {
			return nil
		}

		created = true
		for i, username := range members {
			participant := models.GroupParticipant{GroupChatID: chat.ID, Username: username, Position: i}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
				return err
			}
		}

		creation.GroupChatID = chat.ID
		creation.Action = models.GroupActionCreation
		return tx.Create(&creation).Error
	})
	if err != nil {
		return models.GroupChat{}, false, err
	}

	return chat, created, nil
}

func (r *groupChatRepository) FindByName(ctx context.Context, name string) (models.GroupChat, error) {
	var chat models.GroupChat
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_participants.position")
		}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_messages.id")
		}).
		Where("name = ?", name).
		First(&chat).Error
	if err != nil {
		return models.GroupChat{}, err
	}
	return chat, nil
}

func (r *groupChatRepository) AppendMessage(ctx context.Context, groupID uint, message *models.GroupMessage) error {
	message.GroupChatID = groupID
	if message.Action == "" {
		message.Action = models.GroupActionMessage
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *groupChatRepository) AddParticipants(ctx context.Context, name string, usernames []string, joins []models.GroupMessage) error {
	if len(usernames) != len(joins) {
		return fmt.Errorf("participants and join messages must pair up")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.GroupChat
		if err := tx.Where("name = ?", name).First(&chat).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.GroupParticipant{}).Where("group_chat_id = ?", chat.ID).Count(&count).Error; err != nil {
			return err
		}

		for i, username := range usernames {
			participant := models.GroupParticipant{GroupChatID: chat.ID, Username: username, Position: int(count) + i}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
				return err
			}

			join := joins[i]
			join.GroupChatID = chat.ID
			join.Action = models.GroupActionJoin
			if err := tx.Create(&join).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *groupChatRepository) RemoveParticipant(ctx context.Context, name, username string, leave models.GroupMessage) (bool, uint, error) {
	deleted := false
	var groupID uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.GroupChat
		if err := tx.Where("name = ?", name).First(&chat).Error; err != nil {
			return err
		}
		groupID = chat.ID

		if err := tx.Where("group_chat_id = ? AND username = ?", chat.ID, username).
			Delete(&models.GroupParticipant{}).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.GroupParticipant{}).Where("group_chat_id = ?", chat.ID).Count(&remaining).Error; err != nil {
			return err
		}

		if remaining == 0 {
			deleted = true
			if err := tx.Where("group_chat_id = ?", chat.ID).Delete(&models.GroupMessage{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.GroupChat{}, chat.ID).Error
		}

		leave.GroupChatID = chat.ID
		leave.Action = models.GroupActionLeave
		return tx.Create(&leave).Error
	})
	if err != nil {
		return false, 0, err
	}

	return deleted, groupID, nil
}

func (r *groupChatRepository) IsParticipant(ctx context.Context, name, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupParticipant{}).
		Joins("JOIN group_chats ON group_chats.id = group_participants.group_chat_id").
		Where("group_chats.name = ? AND group_participants.username = ?", name, username).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *groupChatRepository) List(ctx context.Context) ([]models.GroupChat, error) {
	var chats []models.GroupChat
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_participants.position")
		}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_messages.id")
		}).
		Order("id").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *groupChatRepository) ListByMember(ctx context.Context, username string) ([]models.GroupChat, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.GroupParticipant{}).
		Where("username = ?", username).
		Pluck("group_chat_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.GroupChat{}, nil
	}

	var chats []models.GroupChat
	err = r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_participants.position")
		}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_messages.id")
		}).
		Where("id IN ?", ids).
		Order("id").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *groupChatRepository) ListNamesByMember(ctx context.Context, username string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.GroupChat{}).
		Joins("JOIN group_participants ON group_participants.group_chat_id = group_chats.id").
		Where("group_participants.username = ?", username).
		Order("group_chats.id").
		Pluck("group_chats.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *groupChatRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_chat_id = ?", id).Delete(&models.GroupMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_chat_id = ?", id).Delete(&models.GroupParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.GroupChat{}, id).Error
	})
}
