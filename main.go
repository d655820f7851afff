package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/quiz-session-engine/internal/config"
	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/handlers"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/repositories/postgres"
	"github.com/classpulse/quiz-session-engine/internal/services"
	"github.com/classpulse/quiz-session-engine/internal/utils"
	"github.com/classpulse/quiz-session-engine/internal/validator"
	"github.com/classpulse/quiz-session-engine/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize the device-local store backing the outbox and counters
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	store := localstore.NewRedisStore(redisClient, cfg.RedisPrefix)

	// Initialize the event bus, connectivity tracker and notifier
	bus := events.NewBus(slogLogger)
	conn := events.NewConnectivity(bus, slogLogger, cfg.AssumeOnline)
	notifier := events.NewNotifier(bus, slogLogger)

	// Optional Kafka audit sink for integrity events
	audit := events.Publisher(bus)
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, slogLogger)
		if err != nil {
			log.Printf("Warning: Failed to initialize Kafka audit sink: %v", err)
		} else {
			audit = events.NewFanoutPublisher(slogLogger, bus, kafkaPublisher)
		}
	}

	// Initialize repositories
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})

	// Initialize validator
	v := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(
		services.ServiceManagerDeps{
			Repo:      repo,
			Store:     store,
			Validator: v,
			Conn:      conn,
			Notifier:  notifier,
			Bus:       bus,
			Audit:     audit,
			Logger:    slogLogger,
		},
		services.ServiceManagerConfig{
			MaxWarnings:       cfg.MaxWarnings,
			SignalDedupWindow: cfg.SignalDedupWindow,
			RewarnInterval:    cfg.RewarnInterval,
		},
	)

	// Start the sync worker reacting to connectivity transitions
	syncWorker := services.NewSyncWorker(bus, serviceManager.Outbox(), slogLogger)
	if err := syncWorker.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start sync worker: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, v, conn, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	syncWorker.Stop()

	if err := serviceManager.Close(); err != nil {
		log.Printf("Failed to close services: %v", err)
	}

	if err := bus.Close(); err != nil {
		log.Printf("Failed to close event bus: %v", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Printf("Failed to close Kafka publisher: %v", err)
		}
	}

	if err := repo.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Failed to close local store: %v", err)
	}

	logger.Info("Server exited")
}
