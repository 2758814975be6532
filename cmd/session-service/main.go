// File: cmd/session-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	repoPostgres "github.com/gameplatform/session-service/internal/domain/repository/postgres"
	repoRedis "github.com/gameplatform/session-service/internal/domain/repository/redis"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	eventHandlers "github.com/gameplatform/session-service/internal/events/handlers"
	"github.com/gameplatform/session-service/internal/events/kafka"
	eventModels "github.com/gameplatform/session-service/internal/events/models"
	httpHandler "github.com/gameplatform/session-service/internal/handler/http"
	infraPostgres "github.com/gameplatform/session-service/internal/infrastructure/database/postgres"
	"github.com/gameplatform/session-service/internal/infrastructure/ratelimit"
	"github.com/gameplatform/session-service/internal/infrastructure/security"
	"github.com/gameplatform/session-service/internal/service"
	"github.com/gameplatform/session-service/internal/utils/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("Running database migrations")
		m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to create migration instance", zap.Error(err))
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Migrations applied successfully")
	}

	rootCtx := context.Background()

	dbPool, err := infraPostgres.NewDBPool(rootCtx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	tokenRepo := repoPostgres.NewRefreshTokenRepositoryPostgres(dbPool)
	auditRepo := repoPostgres.NewAuditLogRepositoryPostgres(dbPool)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(rootCtx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	replayTracker := repoRedis.NewReplayTrackerRedis(redisClient, log, cfg.Security.ReplayWindow)
	rateLimiter := ratelimit.NewRedisRateLimiter(redisClient, cfg.Security.RateLimiting, log)

	codec, err := security.NewRSATokenCodec(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to initialize token codec", zap.Error(err))
	}

	auditRecorder := service.NewAuditRecorder(auditRepo, cfg.Audit.QueueSize, log)

	// eventPublisher stays a nil interface when Kafka is disabled; services
	// treat a nil publisher as "eventing off".
	var eventPublisher service.EventPublisher
	var kafkaProducer *kafka.Producer
	var kafkaConsumer *kafka.ConsumerGroup
	if cfg.Kafka.Enabled {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Producer.Topic, log)
		if err != nil {
			log.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		eventPublisher = kafkaProducer

		kafkaConsumer, err = kafka.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Consumer.Topics, cfg.Kafka.Consumer.GroupID, log)
		if err != nil {
			log.Fatal("Failed to initialize Kafka consumer group", zap.Error(err))
		}
	}

	sessionService := service.NewSessionService(tokenRepo, codec, auditRecorder, cfg.JWT, log)
	rotationService := service.NewRotationService(service.RotationServiceDeps{
		TokenRepo:     tokenRepo,
		Codec:         codec,
		Audit:         auditRecorder,
		Events:        eventPublisher,
		ReplayTracker: replayTracker,
		JWTConfig:     cfg.JWT,
		Rotation:      cfg.Rotation,
		Logger:        log,
	})
	revocationService := service.NewRevocationService(tokenRepo, auditRecorder, eventPublisher, log)
	cleanupService := service.NewCleanupService(tokenRepo, auditRecorder, eventPublisher, cfg.Cleanup, log)

	if kafkaConsumer != nil {
		accountEvents := eventHandlers.NewAccountEventsHandler(revocationService, log)
		adminEvents := eventHandlers.NewAdminEventsHandler(revocationService, log)
		kafkaConsumer.RegisterHandler(eventModels.AccountUserDeletedV1, accountEvents.HandleUserDeleted)
		kafkaConsumer.RegisterHandler(eventModels.AdminUserBlockedV1, adminEvents.HandleUserBlocked)
		kafkaConsumer.Start(rootCtx)
	}

	authorizer := domainService.NewRoleGrantAuthorizer(cfg.Security.Authorization, log)

	healthHandler := httpHandler.NewHealthHandler(
		dbPool,
		httpHandler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		log,
	)

	router := httpHandler.SetupRouter(
		sessionService,
		rotationService,
		revocationService,
		cleanupService,
		auditRepo,
		codec,
		authorizer,
		rateLimiter,
		healthHandler,
		cfg,
		log,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupCtx, cancelCleanup := context.WithCancel(rootCtx)
	go cleanupService.Run(cleanupCtx)

	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	// Stop intake first, then drain the async workers so in-flight cascades
	// and audit writes land before the process exits.
	cancelCleanup()
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Close(); err != nil {
			log.Error("Failed to close Kafka consumer group", zap.Error(err))
		}
	}
	rotationService.Close()
	auditRecorder.Close()
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}

	log.Info("Server exited properly")
}
