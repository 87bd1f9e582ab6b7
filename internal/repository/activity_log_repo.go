package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/models"
)

// ActivityLogRepository keeps a durable trail of broadcast activity pings.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	Recent(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs an activity log repository backed by GORM.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var entries []models.ActivityLog
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
