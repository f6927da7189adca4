package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settings-service/internal/config"
	"settings-service/internal/database/mongo"
	"settings-service/internal/database/redis"
	"settings-service/internal/event"
	"settings-service/internal/handlers"
	"settings-service/internal/logging"
	"settings-service/internal/repository"
	"settings-service/internal/service"
	"settings-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))

	// Initialize storage
	var store service.Store
	var mongoConn *mongo.Connection
	if cfg.Storage.Backend == "memory" || cfg.MongoDB.URI == "" {
		logger.Warn("Using in-memory settings store, data is not persisted")
		store = repository.NewMemoryRepository()
	} else {
		mongoConn, err = mongo.Connect(cfg.MongoDB, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		settingsRepo := repository.NewSettingsRepository(mongoConn.Database)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := settingsRepo.CreateIndexes(ctx); err != nil {
			logger.Warn("Failed to create database indexes", zap.Error(err))
		} else {
			logger.Info("Database indexes created successfully")
		}
		cancel()
		store = settingsRepo
	}

	var cache service.Cache
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(cfg.Redis, logger)
		defer redisClient.Close()
		cache = repository.NewSettingsCache(redisClient, cfg.Cache.TTL)
	}

	var publisher event.Publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, logger)
	if err != nil {
		logger.Warn("Failed to initialize event publisher", zap.Error(err))
	} else {
		publisher = eventPublisher
	}

	// Initialize services
	settingsService := service.NewSettingsService(store, cache, publisher, cfg.Locale.SupportedLanguages, logger)

	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.QueueName, settingsService, logger)
	if err != nil {
		logger.Warn("Failed to initialize event consumer", zap.Error(err))
	} else {
		if err := eventConsumer.Start(); err != nil {
			logger.Warn("Failed to start event consumer", zap.Error(err))
			eventConsumer.Close()
		} else {
			logger.Info("Successfully started event consumer")
			defer eventConsumer.Close()
		}
	}

	// Initialize and register handlers
	settingsHandler := handlers.NewSettingsHandler(settingsService, logger)
	settingsHandler.RegisterRoutes(app)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Enabled {
		registry, err = discovery.NewServiceRegistry(cfg, logger)
		if err != nil {
			logger.Warn("Service discovery init failed", zap.Error(err))
		} else if err := registry.Register(); err != nil {
			logger.Warn("Failed to register with Consul", zap.Error(err))
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			logger.Fatal("Error starting server", zap.Error(err))
		}
		doneChan <- true
	}()

	<-shutdownChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Error closing event publisher", zap.Error(err))
		}
	}

	mongoConn.Disconnect()

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			logger.Error("Error deregistering from service discovery", zap.Error(err))
		}
	}

	<-doneChan
	logger.Info("Server shutdown complete")
}
