package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"detective_lab/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when TEST_REDIS_ADDR points at a disposable Redis.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisLock_Exclusive(t *testing.T) {
	rdb := testClient(t)
	key := "test:lock:" + uuid.NewString()
	ctx := context.Background()

	first := NewRedisLock(rdb, key, 200*time.Millisecond)
	unlock, err := first.Lock(ctx)
	require.NoError(t, err)

	second := NewRedisLock(rdb, key, 100*time.Millisecond)
	_, err = second.Lock(ctx)
	assert.ErrorIs(t, err, common.ErrLockFailed)

	unlock()
	unlock2, err := second.Lock(ctx)
	require.NoError(t, err)
	unlock2()

	n, err := rdb.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisLock_ReleaseKeepsForeignToken(t *testing.T) {
	rdb := testClient(t)
	key := "test:lock:" + uuid.NewString()
	ctx := context.Background()

	l := NewRedisLock(rdb, key, time.Second)
	unlock, err := l.Lock(ctx)
	require.NoError(t, err)

	require.NoError(t, rdb.Set(ctx, key, "someone-else", time.Second).Err())
	unlock()

	v, err := rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLock_CancelledContext(t *testing.T) {
	rdb := testClient(t)
	key := "test:lock:" + uuid.NewString()

	unlock, err := NewRedisLock(rdb, key, time.Second).Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewRedisLock(rdb, key, 5*time.Second).Lock(ctx)
	assert.ErrorIs(t, err, common.ErrLockFailed)
}
