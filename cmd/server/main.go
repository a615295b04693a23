package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/assemblyai"
	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/cleanup"
	"github.com/codebuildervaibhav/skill-dashboard/internal/config"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/events"
	"github.com/codebuildervaibhav/skill-dashboard/internal/handlers"
	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
	"github.com/codebuildervaibhav/skill-dashboard/internal/queue"
	"github.com/codebuildervaibhav/skill-dashboard/internal/storage"
)

func main() {
	configPath := envOr("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	logBuffer := logging.NewBuffer(1000)
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, logBuffer)

	log.Info().Msg("Initializing components...")
	ctx := context.Background()

	history, err := openHistory(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.History.Driver).Msg("Failed to initialize history store")
	}
	defer history.Close()

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to initialize blob storage")
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()

	// Worker pool
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, history, publisher)
	workerPool.Start()

	provider := assemblyai.NewClient(
		cfg.AssemblyAI.APIKey,
		cfg.AssemblyAI.BaseURL,
		time.Duration(cfg.AssemblyAI.TimeoutSeconds)*time.Second,
	)

	svc := conversation.NewService(provider, blobs, workerPool, conversation.Options{
		SpeakersExpected: cfg.AssemblyAI.SpeakersExpected,
		CreateOnSubmit:   cfg.History.CreateOnSubmit,
		MaxFileSize:      int64(cfg.Limits.MaxFileSizeMB) * 1024 * 1024,
	})

	// Cleanup scheduler
	if cfg.Storage.Backend == "local" && cfg.Cleanup.IntervalMinutes > 0 && cfg.Cleanup.MaxAgeHours > 0 {
		cleanupScheduler := cleanup.NewScheduler(cfg.Storage.LocalDir, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours)
		cleanupScheduler.Start()
		defer cleanupScheduler.Stop()
	}

	// Create Fiber app; the slack covers multipart framing around the file.
	app := fiber.New(fiber.Config{
		BodyLimit:             (cfg.Limits.MaxFileSizeMB + 1) * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: os.Stdout}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.Register(app, handlers.Deps{
		Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		Conversation:   svc,
		History:        history,
		HistoryLimit:   cfg.History.ListLimit,
		MaxUploadBytes: int64(cfg.Limits.MaxFileSizeMB) * 1024 * 1024,
		Logs:           logBuffer,
		Integrations: handlers.Integrations{
			AssemblyAI: cfg.AssemblyAI.APIKey != "",
			Auth:       cfg.Auth.JWTSecret != "",
			Storage:    cfg.Storage.Backend,
			History:    cfg.History.Driver,
			Events:     cfg.Events.Driver,
		},
		Polling: poller.Options{
			Interval:    cfg.PollInterval(),
			MaxAttempts: cfg.Polling.MaxAttempts,
		},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Server starting")
	log.Info().Msg("Endpoints:")
	log.Info().Msg("   POST /api/conversation      - Submit audio for diarized transcription")
	log.Info().Msg("   POST /api/conversation/gdrive - Submit a shared Google Drive recording")
	log.Info().Msg("   GET  /api/conversation/:id  - Transcription status")
	log.Info().Msg("   GET  /ws/conversation/:id   - Watch a transcription over websocket")
	log.Info().Msg("   GET  /api/history           - Recent skill history")
	log.Info().Msg("   GET  /api/skills            - Skills catalog")
	log.Info().Msg("   GET  /api/test-env          - Configured integrations")
	log.Info().Msg("   GET  /logs                  - View server logs")
	log.Info().Msg("   GET  /metrics               - Prometheus metrics")
	log.Info().Msg("   GET  /health                - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info().Msg("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}

	workerPool.Stop()
	log.Info().Msg("Server stopped")
}

func openHistory(ctx context.Context, cfg *config.Config) (storage.HistoryStore, error) {
	if cfg.History.Driver == "postgres" {
		return storage.NewPostgresHistory(ctx, cfg.History.DSN)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.DSN), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return storage.NewMetadataDB(cfg.History.DSN)
}

func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	case "gdrive":
		return storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
	}
	if err := os.MkdirAll(cfg.Storage.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return storage.NewLocalStorage(cfg.Storage.LocalDir), nil
}

func openPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "kafka":
		return events.NewKafka(&events.KafkaConfig{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
			Enabled: true,
		}), nil
	case "nats":
		return events.NewNATS(cfg.Events.NatsURL, cfg.Events.NatsToken, cfg.Events.Subject)
	}
	return events.NewKafka(nil), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
