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
	"github.com/rs/zerolog"

	"github.com/wanderly/wanderly-api/internal/config"
	"github.com/wanderly/wanderly-api/internal/database"
	"github.com/wanderly/wanderly-api/internal/handler"
	"github.com/wanderly/wanderly-api/internal/middleware"
	"github.com/wanderly/wanderly-api/internal/models"
	"github.com/wanderly/wanderly-api/internal/repository"
	"github.com/wanderly/wanderly-api/internal/router"
	"github.com/wanderly/wanderly-api/internal/service"
	cloud "github.com/wanderly/wanderly-api/pkg/cloudinary"
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
		&models.Trip{},
		&models.TripParticipant{},
		&models.TripChat{},
		&models.TripMessage{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, chat fan-out limited to this node")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	tripRepo := repository.NewTripRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, logger)
	chatRoomService := service.NewChatRoomService(chatRepo, tripRepo, participantRepo, logger)
	ledger := service.NewCapacityLedger(tripRepo, participantRepo, logger)
	participationService := service.NewParticipationService(tripRepo, participantRepo, userRepo, ledger, chatRoomService, notificationService, logger)

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	feed := service.NewChatFeed(redisClient, "wanderly:chat", natsConn, logger)
	feed.Start(feedCtx)

	messageService := service.NewMessageService(chatRepo, userRepo, chatRoomService, feed, validate, logger)
	streamService := service.NewChatStreamService(messageService, logger)

	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.JWTRefreshSecret, 15*time.Minute, 7*24*time.Hour, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	tripService := service.NewTripService(tripRepo, validate, logger)
	uploadService := service.NewUploadService(uploader, cfg.UploadMaxMB, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	tripHandler := handler.NewTripHandler(tripService, participationService, logger)
	chatHandler := handler.NewChatHandler(chatRoomService, messageService, streamService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive)
	uploadHandler := handler.NewUploadHandler(uploadService, userService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		TripHandler:         tripHandler,
		ChatHandler:         chatHandler,
		NotificationHandler: notificationHandler,
		UploadHandler:       uploadHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
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
