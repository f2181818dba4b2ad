package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"detective_lab/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocker struct {
	locks, unlocks int
	err            error
}

func (l *countingLocker) Lock(ctx context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() { l.unlocks++ }, nil
}

type countingStore struct {
	*MemoryStore
	saves int
}

func (s *countingStore) Save(ctx context.Context, rs *model.RecordSet) error {
	s.saves++
	return s.MemoryStore.Save(ctx, rs)
}

func TestUpdater_SavesChanges(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	locker := &countingLocker{}
	u := NewUpdater(store, locker)

	err := u.Update(ctx, func(rs *model.RecordSet) (bool, error) {
		rs.Users["alice"] = &model.User{Username: "alice", Role: model.RoleLearner}
		return true, nil
	})
	require.NoError(t, err)

	rs, err := u.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, rs.Users, "alice")
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
}

func TestUpdater_SkipsSaveWithoutChange(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	u := NewUpdater(store, nil)

	require.NoError(t, u.Update(context.Background(), func(rs *model.RecordSet) (bool, error) {
		return false, nil
	}))
	assert.Equal(t, 0, store.saves)
}

func TestUpdater_SkipsSaveOnError(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	u := NewUpdater(store, nil)
	boom := errors.New("boom")

	err := u.Update(context.Background(), func(rs *model.RecordSet) (bool, error) {
		rs.Users["x"] = &model.User{Username: "x"}
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.saves)

	rs, _ := store.Load(context.Background())
	assert.Empty(t, rs.Users)
}

func TestUpdater_LockFailure(t *testing.T) {
	lockErr := errors.New("lock held")
	u := NewUpdater(NewMemoryStore(), &countingLocker{err: lockErr})

	called := false
	err := u.Update(context.Background(), func(rs *model.RecordSet) (bool, error) {
		called = true
		return true, nil
	})
	assert.ErrorIs(t, err, lockErr)
	assert.False(t, called)
}

func TestUpdater_SerializesConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	u := NewUpdater(NewMemoryStore(), nil)
	require.NoError(t, u.Update(ctx, func(rs *model.RecordSet) (bool, error) {
		rs.Users["alice"] = &model.User{Username: "alice"}
		rs.Progress["alice"] = model.NewProgressRecord()
		return true, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = u.Update(ctx, func(rs *model.RecordSet) (bool, error) {
				rs.Progress["alice"].Points++
				return true, nil
			})
		}()
	}
	wg.Wait()

	rs, err := u.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, rs.Progress["alice"].Points)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, sampleRecordSet()))

	rs, err := store.Load(ctx)
	require.NoError(t, err)
	rs.Progress["alice"].Points = 999
	rs.Progress["alice"].Badges[0] = "mutated"

	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, again.Progress["alice"].Points)
	assert.Equal(t, "slicing", again.Progress["alice"].Badges[0])
}
