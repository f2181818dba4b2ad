package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"detective_lab/internal/domain/model"
)

// Store persists the whole record set. Load and Save always read and replace
// everything; there is no partial update.
type Store interface {
	Load(ctx context.Context) (*model.RecordSet, error)
	Save(ctx context.Context, rs *model.RecordSet) error
}

// Locker serializes store mutations across processes. Lock returns the function
// that releases the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Updater runs read-modify-write cycles against a Store. Cycles are serialized by
// a process-local mutex and, when a Locker is configured, by that lock too.
type Updater struct {
	store  Store
	locker Locker
	mu     sync.Mutex
}

func NewUpdater(store Store, locker Locker) *Updater {
	return &Updater{store: store, locker: locker}
}

func (u *Updater) Store() Store {
	return u.store
}

// Load reads a consistent view without taking the lock.
func (u *Updater) Load(ctx context.Context) (*model.RecordSet, error) {
	return u.store.Load(ctx)
}

// Update loads the record set, applies fn and saves the result. Nothing is saved
// when fn returns an error or reports that it made no change.
func (u *Updater) Update(ctx context.Context, fn func(rs *model.RecordSet) (changed bool, err error)) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.locker != nil {
		unlock, err := u.locker.Lock(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}

	rs, err := u.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	changed, err := fn(rs)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := u.store.Save(ctx, rs); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// MemoryStore keeps the record set in memory. Load returns deep copies so callers
// cannot mutate stored state without Save.
type MemoryStore struct {
	mu sync.Mutex
	rs *model.RecordSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rs: model.NewRecordSet()}
}

func (s *MemoryStore) Load(ctx context.Context) (*model.RecordSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecordSet(s.rs), nil
}

func (s *MemoryStore) Save(ctx context.Context, rs *model.RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rs = cloneRecordSet(rs)
	return nil
}

func cloneRecordSet(rs *model.RecordSet) *model.RecordSet {
	out := model.NewRecordSet()
	for name, u := range rs.Users {
		cp := *u
		out.Users[name] = &cp
	}
	for name, p := range rs.Progress {
		cp := &model.ProgressRecord{
			CompletedCases: append([]string{}, p.CompletedCases...),
			Points:         p.Points,
			Badges:         append([]string{}, p.Badges...),
			SolvedAt:       make(map[string]time.Time, len(p.SolvedAt)),
		}
		for id, at := range p.SolvedAt {
			cp.SolvedAt[id] = at
		}
		out.Progress[name] = cp
	}
	return out
}
