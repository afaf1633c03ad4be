package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salespulse/platform/pkg/common/config"
	"github.com/salespulse/platform/pkg/common/logger"
)

// OpenRedis returns nil when no address is configured; the leaderboard cache
// is optional for the API server.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Log.Info("Redis not configured, leaderboard cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Log.WithError(err).Error("Failed to connect to Redis")
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
	return client, nil
}
