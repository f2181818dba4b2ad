package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"detective_lab/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

const retryInterval = 25 * time.Millisecond

// RedisLock is a SET NX PX mutex shared by every process using the same key.
type RedisLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLock{rdb: rdb, key: key, ttl: ttl}
}

// Lock retries until the key is free, ctx ends or one TTL has passed, and then
// gives up with common.ErrLockFailed.
func (l *RedisLock) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrLockFailed, err)
		}
		if ok {
			return func() { l.release(token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held for more than %s", common.ErrLockFailed, l.key, l.ttl)
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", common.ErrLockFailed, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLock) release(token string) {
	// The caller's context may already be cancelled; the release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		zap.L().Error("Failed to release store lock", zap.String("key", l.key), zap.Error(err))
		return
	}
	if deleted != 1 {
		zap.L().Warn("Store lock expired before release", zap.String("key", l.key))
	}
}
