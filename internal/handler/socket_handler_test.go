package handler

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chatly-app/chatly-api/internal/auth"
	"github.com/chatly-app/chatly-api/internal/dto"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
	"github.com/chatly-app/chatly-api/internal/service"
)

type socketTestServer struct {
	addr string
	auth *auth.Service
}

// startSocketServer boots the full websocket stack on a loopback listener so
// tests can drive it with a plain websocket client.
func startSocketServer(t *testing.T) *socketTestServer {
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

	validate := validator.New(validator.WithRequiredStructEnabled())
	users := repository.NewUserRepository(db)
	chats := repository.NewPrivateChatRepository(db)
	groups := repository.NewGroupChatRepository(db)
	activity := repository.NewActivityLogRepository(db)

	authService := auth.NewService(users, "test-secret", zerolog.Nop())

	presence := realtime.NewPresenceRegistry(zerolog.Nop())
	rooms := realtime.NewRoomManager(zerolog.Nop())
	hub := realtime.NewHub(zerolog.Nop())

	messages := service.NewMessageService(chats, groups, users, activity, presence, rooms, hub, nil, nil, "", 0, validate, zerolog.Nop())
	groupService := service.NewGroupService(groups, presence, rooms, hub, validate, zerolog.Nop())
	blocks := service.NewBlockService(users, presence, hub, validate, zerolog.Nop())
	socketService := service.NewSocketService(authService, messages, groupService, blocks, presence, rooms, hub, validate, 16, zerolog.Nop())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewSocketHandler(socketService, zerolog.Nop()).Register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return &socketTestServer{addr: ln.Addr().String(), auth: authService}
}

func (s *socketTestServer) register(t *testing.T, username string) (models.User, string) {
	t.Helper()

	user, err := s.auth.Register(context.Background(), dto.RegisterRequest{Username: username, Password: "s3cret"})
	require.NoError(t, err)

	resp, err := s.auth.Login(context.Background(), dto.LoginRequest{Username: username, Password: "s3cret"})
	require.NoError(t, err)
	return user, resp.AccessToken
}

func (s *socketTestServer) dial(t *testing.T) *gorillaws.Conn {
	t.Helper()

	var conn *gorillaws.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, _, err = gorillaws.DefaultDialer.Dial("ws://"+s.addr+"/ws", nil)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func sendEvent(t *testing.T, conn *gorillaws.Conn, event string, payload interface{}) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(dto.SocketEnvelope{Event: event, Data: data}))
}

// readUntil consumes frames until the wanted event arrives, skipping the
// broadcasts every connection receives.
func readUntil(t *testing.T, conn *gorillaws.Conn, event string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&envelope))
		if envelope.Event == event {
			return envelope.Data
		}
	}
}

func TestSocketEnterChatBroadcastsPresence(t *testing.T) {
	server := startSocketServer(t)
	user, _ := server.register(t, "alice")

	conn := server.dial(t)
	sendEvent(t, conn, dto.EventEnterChat, dto.EnterChatPayload{Username: "alice", UserID: user.ID})

	data := readUntil(t, conn, dto.EventOnlineUsers)

	var online []dto.OnlineUser
	require.NoError(t, json.Unmarshal(data, &online))
	require.Equal(t, []dto.OnlineUser{{Username: "alice"}}, online)
}

func TestSocketPrivateMessageReachesReceiver(t *testing.T) {
	server := startSocketServer(t)
	alice, aliceToken := server.register(t, "alice")
	bob, _ := server.register(t, "bob")

	aliceConn := server.dial(t)
	bobConn := server.dial(t)

	sendEvent(t, aliceConn, dto.EventEnterChat, dto.EnterChatPayload{Username: "alice", UserID: alice.ID})
	sendEvent(t, bobConn, dto.EventEnterChat, dto.EnterChatPayload{Username: "bob", UserID: bob.ID})
	readUntil(t, bobConn, dto.EventOnlineUsers)

	sendEvent(t, aliceConn, dto.EventSendMessage, dto.SendMessagePayload{
		Content:    "hello over the wire",
		From:       "alice",
		To:         "bob",
		Token:      aliceToken,
		ReceiverID: bob.ID,
	})

	data := readUntil(t, bobConn, dto.EventReceiveMessage)

	var delivery dto.MessageDelivery
	require.NoError(t, json.Unmarshal(data, &delivery))
	require.Equal(t, "hello over the wire", delivery.Content)
	require.Equal(t, "alice", delivery.From)
}

func TestSocketRejectsForgedTokens(t *testing.T) {
	server := startSocketServer(t)
	alice, _ := server.register(t, "alice")
	bob, _ := server.register(t, "bob")

	aliceConn := server.dial(t)
	bobConn := server.dial(t)

	sendEvent(t, aliceConn, dto.EventEnterChat, dto.EnterChatPayload{Username: "alice", UserID: alice.ID})
	sendEvent(t, bobConn, dto.EventEnterChat, dto.EnterChatPayload{Username: "bob", UserID: bob.ID})
	readUntil(t, bobConn, dto.EventOnlineUsers)

	sendEvent(t, aliceConn, dto.EventSendMessage, dto.SendMessagePayload{
		Content:    "should never arrive",
		From:       "alice",
		To:         "bob",
		Token:      "forged-token",
		ReceiverID: bob.ID,
	})

	// Give the server time to process the forged frame, then trigger a
	// broadcast bob is guaranteed to receive.
	time.Sleep(100 * time.Millisecond)
	sendEvent(t, bobConn, dto.EventExitChat, nil)

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, bobConn.ReadJSON(&envelope))
		require.NotEqual(t, dto.EventReceiveMessage, envelope.Event)
		if envelope.Event == dto.EventOnlineUsers {
			var online []dto.OnlineUser
			require.NoError(t, json.Unmarshal(envelope.Data, &online))
			if len(online) == 1 && online[0].Username == "alice" {
				return
			}
		}
	}
}

func TestSocketUpgradeRequired(t *testing.T) {
	server := startSocketServer(t)

	conn, err := net.DialTimeout("tcp", server.addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /ws HTTP/1.1\r\nHost: " + server.addr + "\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "426")
}
