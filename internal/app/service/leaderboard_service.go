package service

import (
	"context"
	"fmt"
	"sort"

	"detective_lab/internal/common"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/domain/repository"

	"go.uber.org/zap"
)

// LeaderboardCache stores the computed ranking between changes.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type nopCache struct{}

func (nopCache) Get(context.Context) ([]model.LeaderboardEntry, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, []model.LeaderboardEntry) error { return nil }
func (nopCache) Invalidate(context.Context) error { return nil }

type LeaderboardService struct {
	updater *repository.Updater
	cache   LeaderboardCache
	log     *zap.Logger
}

// NewLeaderboardService ranks learners; cache may be nil.
func NewLeaderboardService(updater *repository.Updater, cache LeaderboardCache, log *zap.Logger) *LeaderboardService {
	if cache == nil {
		cache = nopCache{}
	}
	return &LeaderboardService{updater: updater, cache: cache, log: log}
}

func (s *LeaderboardService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn("Leaderboard cache read failed", zap.Error(err))
	} else if ok {
		return entries, nil
	}

	rs, err := s.updater.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	entries = BuildLeaderboard(rs)
	if err := s.cache.Set(ctx, entries); err != nil {
		s.log.Warn("Leaderboard cache write failed", zap.Error(err))
	}
	return entries, nil
}

// Invalidate drops the cached ranking. Failures are logged; the TTL bounds staleness.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}

// BuildLeaderboard ranks every learner by points, highest first, breaking ties by
// username. Instructors are not ranked.
func BuildLeaderboard(rs *model.RecordSet) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(rs.Users))
	for name, user := range rs.Users {
		if user.Role != model.RoleLearner {
			continue
		}
		entry := model.LeaderboardEntry{Username: name}
		if p := rs.Progress[name]; p != nil {
			entry.Points = p.Points
			entry.SolvedCount = len(p.CompletedCases)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Rank returns the leaderboard row of one learner.
func (s *LeaderboardService) Rank(ctx context.Context, username string) (model.LeaderboardEntry, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return model.LeaderboardEntry{}, err
	}
	for _, entry := range entries {
		if entry.Username == username {
			return entry, nil
		}
	}
	return model.LeaderboardEntry{}, common.Errorf("%q is not ranked: %w", username, common.ErrNotFound)
}
