package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chatly-app/chatly-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.BlockRelation{},
		&models.PrivateChat{},
		&models.PrivateMessage{},
		&models.GroupChat{},
		&models.GroupParticipant{},
		&models.GroupMessage{},
		&models.ActivityLog{},
	))

	return db
}
