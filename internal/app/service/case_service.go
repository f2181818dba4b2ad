package service

import (
	"context"
	"fmt"

	"detective_lab/internal/common"
	"detective_lab/internal/domain/catalog"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/domain/repository"
	"detective_lab/internal/sandbox"
)

type CaseService struct {
	updater  *repository.Updater
	catalog  *catalog.Catalog
	runtimes *sandbox.Registry
}

func NewCaseService(updater *repository.Updater, cat *catalog.Catalog, runtimes *sandbox.Registry) *CaseService {
	return &CaseService{updater: updater, catalog: cat, runtimes: runtimes}
}

// CaseDetail is a case as one user may see it.
type CaseDetail struct {
	model.Case
	Locked   bool            `json:"locked"`
	Solved   bool            `json:"solved"`
	Runtimes []model.Runtime `json:"runtimes"`
}

func (s *CaseService) solvedBy(ctx context.Context, username string) (*model.ProgressRecord, error) {
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

// ListCases returns the catalog with this user's lock and solved flags. A non-empty
// concept keeps only cases teaching it.
func (s *CaseService) ListCases(ctx context.Context, session model.Session, concept string) ([]model.CaseOverview, error) {
	p, err := s.solvedBy(ctx, session.Username)
	if err != nil {
		return nil, err
	}
	all := s.catalog.Overview(p)
	if concept == "" {
		return all, nil
	}
	out := make([]model.CaseOverview, 0, len(all))
	for _, c := range all {
		if c.Concept == concept {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetCaseDetails returns one case. Learners do not see the dataset of a case that is
// still locked; instructors see everything.
func (s *CaseService) GetCaseDetails(ctx context.Context, session model.Session, caseID string) (*CaseDetail, error) {
	c, err := s.catalog.Get(caseID)
	if err != nil {
		return nil, err
	}
	p, err := s.solvedBy(ctx, session.Username)
	if err != nil {
		return nil, err
	}
	solved := p.Solved()
	detail := &CaseDetail{
		Case:     c,
		Locked:   !s.catalog.IsUnlocked(c.ID, solved),
		Solved:   solved.Contains(c.ID),
		Runtimes: s.runtimes.List(),
	}
	if detail.Locked && !session.IsInstructor() {
		detail.Dataset.Value = nil
	}
	return detail, nil
}

func (s *CaseService) Runtimes() []model.Runtime {
	return s.runtimes.List()
}
