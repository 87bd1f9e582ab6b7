package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chatly-app/chatly-api/internal/models"
)

func createTestGroup(t *testing.T, repo GroupChatRepository, name string, members []string) models.GroupChat {
	t.Helper()

	chat, created, err := repo.Create(context.Background(), name, members, models.GroupMessage{
		From:    members[0],
		Content: members[0] + " created " + name,
	})
	require.NoError(t, err)
	require.True(t, created)
	return chat
}

func TestCreateGroupWithCreationMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice", "bob"})

	stored, err := repo.FindByName(context.Background(), "gophers")
	require.NoError(t, err)
	require.Len(t, stored.Participants, 2)
	require.Equal(t, "alice", stored.Participants[0].Username)
	require.Equal(t, "bob", stored.Participants[1].Username)
	require.Len(t, stored.Messages, 1)
	require.Equal(t, models.GroupActionCreation, stored.Messages[0].Action)
}

func TestCreateExistingGroupMergesInsteadOfFailing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	first := createTestGroup(t, repo, "gophers", []string{"alice"})

	second, created, err := repo.Create(context.Background(), "gophers", []string{"mallory"}, models.GroupMessage{
		From:    "mallory",
		Content: "mallory created gophers",
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	stored, err := repo.FindByName(context.Background(), "gophers")
	require.NoError(t, err)
	require.Len(t, stored.Participants, 1)
	require.Equal(t, "alice", stored.Participants[0].Username)
	require.Len(t, stored.Messages, 1)
}

func TestAddParticipantsAppendsJoinMessagesInOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice"})

	err := repo.AddParticipants(context.Background(), "gophers", []string{"bob", "carol"}, []models.GroupMessage{
		{From: "alice", Content: "bob was added"},
		{From: "alice", Content: "carol was added"},
	})
	require.NoError(t, err)

	stored, err := repo.FindByName(context.Background(), "gophers")
	require.NoError(t, err)
	require.Len(t, stored.Participants, 3)
	require.Equal(t, "bob", stored.Participants[1].Username)
	require.Equal(t, 1, stored.Participants[1].Position)
	require.Equal(t, "carol", stored.Participants[2].Username)
	require.Equal(t, 2, stored.Participants[2].Position)

	require.Len(t, stored.Messages, 3)
	require.Equal(t, models.GroupActionJoin, stored.Messages[1].Action)
	require.Equal(t, "bob was added", stored.Messages[1].Content)
	require.Equal(t, models.GroupActionJoin, stored.Messages[2].Action)
}

func TestAddParticipantsRejectsUnpairedJoins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice"})

	err := repo.AddParticipants(context.Background(), "gophers", []string{"bob", "carol"}, []models.GroupMessage{
		{From: "alice", Content: "bob was added"},
	})
	require.Error(t, err)
}

func TestRemoveParticipantKeepsGroupWhileMembersRemain(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice", "bob"})

	deleted, _, err := repo.RemoveParticipant(context.Background(), "gophers", "bob", models.GroupMessage{
		From:    "bob",
		Content: "bob left the chat",
	})
	require.NoError(t, err)
	require.False(t, deleted)

	stored, err := repo.FindByName(context.Background(), "gophers")
	require.NoError(t, err)
	require.Len(t, stored.Participants, 1)
	last := stored.Messages[len(stored.Messages)-1]
	require.Equal(t, models.GroupActionLeave, last.Action)
	require.Equal(t, "bob left the chat", last.Content)
}

func TestRemoveLastParticipantDeletesGroupAndLog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	chat := createTestGroup(t, repo, "gophers", []string{"alice"})

	deleted, groupID, err := repo.RemoveParticipant(context.Background(), "gophers", "alice", models.GroupMessage{
		From:    "alice",
		Content: "alice left the chat",
	})
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, chat.ID, groupID)

	_, err = repo.FindByName(context.Background(), "gophers")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var orphans int64
	require.NoError(t, db.Model(&models.GroupMessage{}).Where("group_chat_id = ?", chat.ID).Count(&orphans).Error)
	require.Zero(t, orphans)
}

func TestIsParticipant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice"})

	member, err := repo.IsParticipant(context.Background(), "gophers", "alice")
	require.NoError(t, err)
	require.True(t, member)

	member, err = repo.IsParticipant(context.Background(), "gophers", "mallory")
	require.NoError(t, err)
	require.False(t, member)
}

func TestListByMemberReturnsOnlyJoinedGroups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatRepository(db)

	createTestGroup(t, repo, "gophers", []string{"alice", "bob"})
	createTestGroup(t, repo, "rustaceans", []string{"bob"})

	chats, err := repo.ListByMember(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "gophers", chats[0].Name)

	names, err := repo.ListNamesByMember(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"gophers", "rustaceans"}, names)
}
