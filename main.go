package main

import (
	"context"
	"fmt"
	"ms-events/internal/cache"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	events "ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/sse"
	"ms-events/internal/storage"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

const serviceName = "event-service"

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid configuration: %v", err))
	}

	log.Info("APP", "Starting Event Service initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB := openDatabase(ctx, cfg, log)
	defer bunDB.Close()
	eventDB := &db.DB{Bun: bunDB}

	images, err := storage.NewLocalImageStore(cfg.Storage.ImageDir, cfg.Storage.ImageURLPrefix)
	if err != nil {
		log.Fatal("STORAGE", fmt.Sprintf("Image store unavailable: %v", err))
	}
	log.Info("STORAGE", fmt.Sprintf("Storing uploaded images in %s, served under /%s", cfg.Storage.ImageDir, images.URLPrefix))

	emitter := sse.NewChangeEmitter()
	eventService := events.NewEventService(eventDB, images, log)

	if redisClient := connectRedis(ctx, cfg, log); redisClient != nil {
		defer redisClient.Close()
		eventService.Cache = cache.NewEventCache(redisClient, cfg.Redis.CacheTTL, log)
	}

	if cfg.Kafka.Enabled {
		producer, consumer := setupKafka(cfg, log)
		defer producer.Close()
		defer consumer.Close()
		eventService.Publisher = producer

		// with Kafka on, the stream is fed from the topic so every instance sees every change
		go func() {
			if err := consumer.Start(ctx, emitter.Emit); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Event change consumer stopped: %v", err))
			}
		}()
	} else {
		eventService.Emitter = emitter
	}

	handler := event_api.NewHandler(eventService, emitter, eventDB, log)
	handler.MaxUploadBytes = cfg.Storage.MaxUploadBytes

	log.Info("HTTP", "Setting up router and middleware")
	router := event_api.NewRouter(handler, event_api.RouterOptions{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		ImagePrefix:    images.URLPrefix,
		Images:         images.Handler(),
	})

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// no WriteTimeout: SSE responses stay open
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Server listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("ListenAndServe error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	log.Info("APP", "Server exited properly")
}

func openDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Database connection error: %v", err))
	}
	if err := db.EnsureSchema(ctx, bunDB); err != nil {
		bunDB.Close()
		log.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
	}
	log.LogDatabase("SCHEMA", "events", "✅ Schema ready")
	return bunDB
}

// connectRedis returns nil when caching is disabled or Redis is unreachable; the
// service then reads straight from the database.
func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("CACHE", "Redis cache disabled")
		return nil
	}
	client, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Warn("CACHE", fmt.Sprintf("Redis unavailable, continuing without cache: %v", err))
		return nil
	}
	log.Info("CACHE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
	return client
}

func setupKafka(cfg *config.Config, log *logger.Logger) (*kafka.Producer, *kafka.Consumer) {
	log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.EventsTopic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, log)
	groupID := fmt.Sprintf("%s-stream-%s", serviceName, uuid.NewString())
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, groupID, log)
	log.Info("KAFKA", "Kafka producer and consumer initialized successfully")
	return producer, consumer
}

// compile-time checks that the concrete adapters satisfy the service ports
var (
	_ events.EventDBLayer    = (*db.DB)(nil)
	_ events.EventCache      = (*cache.EventCache)(nil)
	_ events.ChangePublisher = (*kafka.Producer)(nil)
	_ events.ChangeEmitter   = (*sse.ChangeEmitter)(nil)
)
