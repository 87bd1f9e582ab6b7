package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/chatly-app/chatly-api/internal/auth"
	"github.com/chatly-app/chatly-api/internal/config"
	"github.com/chatly-app/chatly-api/internal/database"
	"github.com/chatly-app/chatly-api/internal/handler"
	"github.com/chatly-app/chatly-api/internal/middleware"
	"github.com/chatly-app/chatly-api/internal/models"
	"github.com/chatly-app/chatly-api/internal/realtime"
	"github.com/chatly-app/chatly-api/internal/repository"
	"github.com/chatly-app/chatly-api/internal/router"
	"github.com/chatly-app/chatly-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.BlockRelation{},
		&models.PrivateChat{},
		&models.PrivateMessage{},
		&models.GroupChat{},
		&models.GroupParticipant{},
		&models.GroupMessage{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	privateChatRepo := repository.NewPrivateChatRepository(db)
	groupChatRepo := repository.NewGroupChatRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	authService := auth.NewService(userRepo, cfg.JWTSecret, logger)

	presence := realtime.NewPresenceRegistry(logger)
	rooms := realtime.NewRoomManager(logger)
	hub := realtime.NewHub(logger)

	messageService := service.NewMessageService(
		privateChatRepo, groupChatRepo, userRepo, activityRepo,
		presence, rooms, hub,
		redisClient, natsConn, cfg.EventChannelBase, cfg.ActivityCacheTTL,
		validate, logger,
	)
	groupService := service.NewGroupService(groupChatRepo, presence, rooms, hub, validate, logger)
	blockService := service.NewBlockService(userRepo, presence, hub, validate, logger)
	socketService := service.NewSocketService(
		authService, messageService, groupService, blockService,
		presence, rooms, hub,
		validate, cfg.SocketSendBuffer, logger,
	)
	userService := service.NewUserService(userRepo, validate, logger)
	chatService := service.NewChatService(privateChatRepo, groupChatRepo, socketService, logger)

	userHandler := handler.NewUserHandler(userService, authService, validate, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)
	socketHandler := handler.NewSocketHandler(socketService, logger)

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	defer cancelRelay()
	messageService.Start(relayCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:   userHandler,
		ChatHandler:   chatHandler,
		SocketHandler: socketHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
