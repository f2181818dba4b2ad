package cache

import (
	"context"
	"fmt"
	"time"

	"detective_lab/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connect returns a Redis client for cfg, or nil when REDIS_ADDR is empty.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return rdb, nil
}

func Close(rdb *redis.Client) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		zap.L().Warn("Closing redis", zap.Error(err))
		return
	}
	zap.L().Info("Redis connection closed")
}
