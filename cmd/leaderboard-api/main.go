package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salespulse/platform/pkg/common/config"
	"github.com/salespulse/platform/pkg/common/database"
	"github.com/salespulse/platform/pkg/common/kafka"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/events"
	"github.com/salespulse/platform/pkg/gateway/auth"
	"github.com/salespulse/platform/pkg/gateway/routes"
	"github.com/salespulse/platform/pkg/ingest"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/leaderboard"
	"github.com/salespulse/platform/pkg/posts"
	"github.com/salespulse/platform/pkg/scrape"
	"github.com/salespulse/platform/pkg/targets"
	"gorm.io/gorm"
)

func main() {
	logger.Init("leaderboard-api")
	cfg := config.Load()
	if err := cfg.Require(config.APIRequired...); err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}

	writer, err := database.OpenPostgres(cfg.DatabaseWriteURL, cfg.DatabaseMaxOpenConns, "writer")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open writer database")
	}
	defer database.Close(writer)

	reader, err := database.OpenPostgres(cfg.DatabaseReadURL, cfg.DatabaseMaxOpenConns, "reader")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open reader database")
	}
	defer database.Close(reader)

	if err := migrate(writer); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate schema")
	}

	redisClient, err := database.OpenRedis(context.Background(), cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Continuing without leaderboard cache")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	a, closeEvents, err := build(cfg, reader, writer, redisClient)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build services")
	}
	defer closeEvents()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      newRouter(cfg, a),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Leaderboard API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Leaderboard API...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Leaderboard API stopped")
}

// migrate runs in dependency order: posts reference targets.
func migrate(db *gorm.DB) error {
	if err := targets.NewRepository(db).AutoMigrate(); err != nil {
		return err
	}
	if err := posts.NewRepository(db).AutoMigrate(); err != nil {
		return err
	}
	return jobs.NewStore(db).AutoMigrate()
}

// build wires repositories to the reader or writer pool by whether they
// mutate. Job state always goes through the writer so a poll never reads a
// stale status.
func build(cfg *config.Config, reader, writer *gorm.DB, redisClient *redis.Client) (*app, func(), error) {
	catalog, err := targets.LoadCatalog(cfg.TeamsCatalogPath)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := auth.NewSessionManager(cfg.SessionSigningKey, "salespulse", cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}

	var cache leaderboard.Cache
	if redisClient != nil {
		cache = leaderboard.NewRedisCache(redisClient, leaderboard.CachePrefix)
	}

	targetRepo := targets.NewRepository(writer)
	jobStore := jobs.NewStore(writer)
	board := leaderboard.NewService(
		leaderboard.NewRepository(reader),
		posts.NewRepository(reader),
		jobs.NewStore(reader),
		cache,
		cfg.LeaderboardCacheTTL,
	)

	// Completed jobs and roster changes invalidate the local cache inline; the
	// worker rewarms it from the Kafka event when a broker is configured.
	publisher := events.Fanout{board.Invalidator()}
	closeEvents := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaJobTopic, "leaderboard-api")
		publisher = append(publisher, producer)
		closeEvents = func() {
			if err := producer.Close(); err != nil {
				logger.Log.WithError(err).Warn("Failed to close Kafka producer")
			}
		}
	} else {
		logger.Log.Info("Kafka not configured, job events stay in process")
	}

	readiness := map[string]routes.Pinger{}
	if sqlDB, err := writer.DB(); err == nil {
		readiness["postgres_writer"] = sqlDB
	}
	if sqlDB, err := reader.DB(); err == nil {
		readiness["postgres_reader"] = sqlDB
	}
	if redisClient != nil {
		readiness["redis"] = routes.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	return &app{
		sessions:     sessions,
		targets:      targets.NewService(targetRepo, catalog, publisher),
		jobs:         jobStore,
		orchestrator: scrape.NewOrchestrator(targetRepo, jobStore, scrape.NewHTTPTrigger(cfg.TriggerWebhookURL, cfg.TriggerTimeout), publisher),
		processor:    ingest.NewProcessor(jobStore, targetRepo, posts.NewRepository(writer), publisher),
		posts:        posts.NewRepository(reader),
		leaderboard:  board,
		readiness:    readiness,
	}, closeEvents, nil
}
