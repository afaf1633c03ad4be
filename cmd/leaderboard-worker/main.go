package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/salespulse/platform/pkg/common/config"
	"github.com/salespulse/platform/pkg/common/database"
	"github.com/salespulse/platform/pkg/common/kafka"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/leaderboard"
	"github.com/salespulse/platform/pkg/posts"
)

// The worker rewarms the leaderboard cache whenever a scrape job completes.
func main() {
	logger.Init("leaderboard-worker")
	cfg := config.Load()
	if err := cfg.Require(config.WorkerRequired...); err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader, err := database.OpenPostgres(cfg.DatabaseReadURL, cfg.DatabaseMaxOpenConns, "reader")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open reader database")
	}
	defer database.Close(reader)

	redisClient, err := database.OpenRedis(ctx, cfg)
	if err != nil || redisClient == nil {
		logger.Log.WithError(err).Fatal("Redis is required for the leaderboard worker")
	}
	defer redisClient.Close()

	board := leaderboard.NewService(
		leaderboard.NewRepository(reader),
		posts.NewRepository(reader),
		jobs.NewStore(reader),
		leaderboard.NewRedisCache(redisClient, leaderboard.CachePrefix),
		cfg.LeaderboardCacheTTL,
	)

	if err := board.Warm(ctx); err != nil {
		logger.Log.WithError(err).Warn("Initial cache warm failed")
	}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaJobTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	logger.Log.WithFields(map[string]interface{}{
		"topic": cfg.KafkaJobTopic,
		"group": cfg.KafkaGroupID,
	}).Info("Leaderboard worker started")

	if err := consumer.Consume(ctx, board.HandleEvent); err != nil && ctx.Err() == nil {
		logger.Log.WithError(err).Error("Consumer stopped")
	}

	logger.Log.Info("Leaderboard worker stopped")
}
