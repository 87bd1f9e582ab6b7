package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/chatly-app/chatly-api/internal/models"
)

func TestActivityLogRecentReturnsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)

	for i := 0; i < 3; i++ {
		entry := models.ActivityLog{
			Event:   "last_message_sent",
			Payload: datatypes.JSONMap{"from": fmt.Sprintf("user-%d", i)},
		}
		require.NoError(t, repo.Append(context.Background(), &entry))
	}

	entries, err := repo.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "user-2", entries[0].Payload["from"])
	require.Equal(t, "user-1", entries[1].Payload["from"])
}

func TestActivityLogRecentCapsTheLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)

	require.NoError(t, repo.Append(context.Background(), &models.ActivityLog{Event: "last_message_sent"}))

	entries, err := repo.Recent(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.Recent(context.Background(), 10000)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
