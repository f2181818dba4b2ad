package service

import (
	"context"
	"fmt"
	"sort"

	"detective_lab/internal/common"
	"detective_lab/internal/domain/catalog"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/domain/repository"
)

type ProgressService struct {
	updater *repository.Updater
	catalog *catalog.Catalog
}

func NewProgressService(updater *repository.Updater, cat *catalog.Catalog) *ProgressService {
	return &ProgressService{updater: updater, catalog: cat}
}

// LearnerProgress is one row of the instructor overview.
type LearnerProgress struct {
	Username string                 `json:"username"`
	Progress model.ProgressSnapshot `json:"progress"`
}

func (s *ProgressService) progress(ctx context.Context, username string) (*model.ProgressRecord, error) {
	rs, err := s.updater.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	p := rs.ProgressFor(username)
	if p == nil {
		return nil, common.Errorf("user %q: %w", username, common.ErrNotFound)
	}
	return p, nil
}

func (s *ProgressService) Snapshot(ctx context.Context, session model.Session) (model.ProgressSnapshot, error) {
	p, err := s.progress(ctx, session.Username)
	if err != nil {
		return model.ProgressSnapshot{}, err
	}
	return p.Snapshot(), nil
}

func (s *ProgressService) Graph(ctx context.Context, session model.Session) (model.CaseGraph, error) {
	p, err := s.progress(ctx, session.Username)
	if err != nil {
		return model.CaseGraph{}, err
	}
	return s.catalog.Graph(p.Solved()), nil
}

// Learners returns a snapshot of every learner, ordered by username.
func (s *ProgressService) Learners(ctx context.Context) ([]LearnerProgress, error) {
	rs, err := s.updater.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	out := make([]LearnerProgress, 0, len(rs.Users))
	for name, user := range rs.Users {
		if user.Role != model.RoleLearner {
			continue
		}
		out = append(out, LearnerProgress{Username: name, Progress: rs.ProgressFor(name).Snapshot()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
