package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"detective_lab/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache keeps the ranked rows as one JSON value with a TTL.
type LeaderboardCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewLeaderboardCache(rdb *redis.Client, key string, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb, key: key, ttl: ttl}
}

// Get reports ok=false on a cache miss.
func (c *LeaderboardCache) Get(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", c.key, err)
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []model.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	return c.rdb.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
