package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatly-app/chatly-api/internal/models"
)

// UserRepository persists accounts and the directed block relation between them.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error

	Block(ctx context.Context, blocker, blocked string) error
	Unblock(ctx context.Context, blocker, blocked string) error
	BlockedUsers(ctx context.Context, username string) ([]string, error)
	BlockedBy(ctx context.Context, username string) ([]string, error)
	IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// Block inserts the directed edge. Both users must exist; duplicate blocks are
// absorbed by the unique pair index.
func (r *userRepository) Block(ctx context.Context, blocker, blocked string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, username := range []string{blocker, blocked} {
			var user models.User
			if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
				return err
			}
		}

		relation := models.BlockRelation{Blocker: blocker, Blocked: blocked}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&relation).Error
	})
}

func (r *userRepository) Unblock(ctx context.Context, blocker, blocked string) error {
	return r.db.WithContext(ctx).
		Where("blocker = ? AND blocked = ?", blocker, blocked).
		Delete(&models.BlockRelation{}).Error
}

func (r *userRepository) BlockedUsers(ctx context.Context, username string) ([]string, error) {
	var blocked []string
	err := r.db.WithContext(ctx).
		Model(&models.BlockRelation{}).
		Where("blocker = ?", username).
		Order("created_at").
		Pluck("blocked", &blocked).Error
	if err != nil {
		return nil, err
	}
	return blocked, nil
}

func (r *userRepository) BlockedBy(ctx context.Context, username string) ([]string, error) {
	var blockers []string
	err := r.db.WithContext(ctx).
		Model(&models.BlockRelation{}).
		Where("blocked = ?", username).
		Order("created_at").
		Pluck("blocker", &blockers).Error
	if err != nil {
		return nil, err
	}
	return blockers, nil
}

func (r *userRepository) IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BlockRelation{}).
		Where("(blocker = ? AND blocked = ?) OR (blocker = ? AND blocked = ?)", userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
