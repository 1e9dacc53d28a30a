package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "task-service/internal/adapters/kafka"
	"task-service/internal/api/routes"
	"task-service/internal/auth"
	"task-service/internal/config"
	"task-service/internal/database"
	"task-service/internal/repositories/postgres"
	"task-service/internal/services"
	"task-service/internal/websocket"
	"task-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zl, err := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		Level:       cfg.Log.Level,
		ServiceName: "task-service",
	})
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Error("Server exited with error", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	zl.Info("Starting task server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	// Redis is optional: without it presence is not mirrored and fan-out stays local
	redisClient, err := database.NewRedisConnection(ctx, cfg.Redis)
	if err != nil {
		zl.Warn("Redis unavailable, running without presence mirror and relay", zap.Error(err))
		redisClient = nil
	}

	background, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Realtime core
	registry := websocket.NewRegistry()
	topics := websocket.NewTopics()
	hub := websocket.NewHub(registry, topics, zl, websocket.Options{
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})

	var publisher websocket.Publisher = hub
	var redisService *services.RedisService
	if redisClient != nil {
		redisService = services.NewRedisService(redisClient, zl)

		presence := websocket.NewPresenceSync(redisService, registry, 0, zl)
		hub.SetPresence(presence)
		go presence.Run(background)

		if cfg.Redis.Fanout {
			relay := websocket.NewRedisRelay(redisClient, hub, 0, zl)
			go relay.Run(background)
			publisher = relay
		}
	}

	var taps []websocket.Tap
	var audit *kafkaadapter.AuditTap
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.AuditTopic != "" {
		audit, err = kafkaadapter.NewAuditTap(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, zl)
		if err != nil {
			zl.Warn("Kafka audit producer unavailable", zap.Error(err))
		} else {
			taps = append(taps, audit)
		}
	}
	dispatcher := websocket.NewDispatcher(publisher, zl, taps...)

	ingestCtx, stopIngest := context.WithCancel(background)
	defer stopIngest()
	var consumer *kafkaadapter.Consumer
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.IngestTopic != "" {
		consumer = kafkaadapter.NewConsumer(cfg.Kafka, dispatcher, zl)
		go consumer.Run(ingestCtx)
	}

	// Repositories and services
	userService := services.NewUserService(postgres.NewUserRepository(db), zl)
	notificationService := services.NewNotificationService(postgres.NewNotificationRepository(db), dispatcher, zl)
	reminder := services.NewReminderService(postgres.NewTaskRepository(db), notificationService,
		cfg.Reminder.Schedule, cfg.Reminder.DueWindow, zl)
	if err := reminder.Start(); err != nil {
		return err
	}

	authenticator := websocket.NewAuthenticator(auth.NewVerifier(cfg.JWT.Secret), userService, cfg.WebSocket.AuthTimeout, zl)

	deps := routes.Dependencies{
		WebSocket:       websocket.NewHandler(hub, authenticator, cfg.WebSocket.AllowedOrigins, zl),
		Verifier:        auth.NewVerifier(cfg.JWT.Secret),
		Presence:        registry,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		HandshakeLimit:  cfg.WebSocket.HandshakeLimit,
		HandshakeWindow: cfg.WebSocket.HandshakeWindow,
		HealthCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Log: zl,
	}
	if redisService != nil {
		deps.RateLimiter = redisService
	}

	router := routes.NewRouter(deps)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	zl.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	reminder.Stop(shutdownCtx)

	stopIngest()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			zl.Warn("Kafka consumer close failed", zap.Error(err))
		}
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		zl.Warn("WebSocket connections did not drain in time", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}

	cancelBackground()
	if audit != nil {
		audit.Close()
	}
	if redisClient != nil {
		closeRedis(redisClient, zl)
	}

	zl.Info("Server stopped")
	return nil
}

func closeRedis(client *redis.Client, zl *zap.Logger) {
	if err := client.Close(); err != nil {
		zl.Warn("Redis close failed", zap.Error(err))
	}
}
