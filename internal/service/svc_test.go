package service

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
)

// fixture wires sqlite-backed repositories to fresh realtime primitives, the
// same shape the services see in production.
type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	chats    repository.PrivateChatRepository
	groups   repository.GroupChatRepository
	activity repository.ActivityLogRepository
	presence *realtime.PresenceRegistry
	rooms    *realtime.RoomManager
	hub      *realtime.Hub
	validate *validator.Validate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
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

	return &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		chats:    repository.NewPrivateChatRepository(db),
		groups:   repository.NewGroupChatRepository(db),
		activity: repository.NewActivityLogRepository(db),
		presence: realtime.NewPresenceRegistry(zerolog.Nop()),
		rooms:    realtime.NewRoomManager(zerolog.Nop()),
		hub:      realtime.NewHub(zerolog.Nop()),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (f *fixture) seedUser(t *testing.T, username string) models.User {
	t.Helper()

	user := models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

// connect registers a live connection for the user and marks it online.
func (f *fixture) connect(t *testing.T, userID uint, username string) *realtime.Client {
	t.Helper()

	client := realtime.NewClient(nil, 16, zerolog.Nop())
	t.Cleanup(client.Close)
	f.hub.Register(client)
	f.presence.SetOnline(userID, client.ID(), username)
	return client
}

func collectEvents(client *realtime.Client) map[string][]dto.OutboundEvent {
	events := make(map[string][]dto.OutboundEvent)
	for {
		select {
		case event := <-client.Outbox():
			events[event.Event] = append(events[event.Event], event)
		default:
			return events
		}
	}
}
