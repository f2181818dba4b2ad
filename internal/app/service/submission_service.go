package service

import (
	"context"
	"fmt"

	"detective_lab/internal/app/grader"
	"detective_lab/internal/common"
	"detective_lab/internal/domain/catalog"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/domain/repository"

	"go.uber.org/zap"
)

// MaxCodeBytes bounds the size of one submission.
const MaxCodeBytes = 64 << 10

// OutcomeObserver is told about every final grading outcome.
type OutcomeObserver interface {
	ObserveOutcome(o *model.Outcome)
}

type SubmissionService struct {
	updater     *repository.Updater
	catalog     *catalog.Catalog
	grader      *grader.Grader
	leaderboard *LeaderboardService
	observer    OutcomeObserver
	log         *zap.Logger
}

func NewSubmissionService(
	updater *repository.Updater,
	cat *catalog.Catalog,
	g *grader.Grader,
	leaderboard *LeaderboardService,
	observer OutcomeObserver,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		updater:     updater,
		catalog:     cat,
		grader:      g,
		leaderboard: leaderboard,
		observer:    observer,
		log:         log,
	}
}

type SubmitRequest struct {
	Runtime string `json:"runtime"`
	Code    string `json:"code"`
}

// Submit grades code for caseID and, when it is accepted, records the solve in the
// learner's ledger. Submissions run outside the store lock; the solve is recorded
// afterwards under the lock, so a concurrent duplicate ends as already_solved.
func (s *SubmissionService) Submit(ctx context.Context, session model.Session, caseID string, req SubmitRequest) (*model.Outcome, error) {
	if len(req.Code) > MaxCodeBytes {
		return nil, common.Errorf("submission is larger than %d bytes: %w", MaxCodeBytes, common.ErrValidation)
	}
	c, err := s.catalog.Get(caseID)
	if err != nil {
		return nil, err
	}

	rs, err := s.updater.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	progress := rs.ProgressFor(session.Username)
	if progress == nil {
		return nil, common.Errorf("user %q: %w", session.Username, common.ErrNotFound)
	}

	outcome, err := s.grader.Grade(ctx, c, req.Runtime, req.Code, progress)
	if err != nil {
		return nil, err
	}

	if outcome.Accepted() {
		if err := s.record(ctx, session.Username, outcome); err != nil {
			return nil, err
		}
	}

	if s.observer != nil {
		s.observer.ObserveOutcome(outcome)
	}
	s.log.Info("Submission graded",
		zap.String("username", session.Username),
		zap.String("case", c.ID),
		zap.String("runtime", outcome.Runtime),
		zap.String("verdict", string(outcome.Verdict)),
		zap.Int("reward", outcome.RewardPoints),
		zap.Int64("duration_ms", outcome.DurationMs),
	)
	return outcome, nil
}

func (s *SubmissionService) record(ctx context.Context, username string, outcome *model.Outcome) error {
	recorded := false
	err := s.updater.Update(ctx, func(rs *model.RecordSet) (bool, error) {
		progress := rs.ProgressFor(username)
		if progress == nil {
			return false, common.Errorf("user %q: %w", username, common.ErrNotFound)
		}
		recorded = progress.RecordSuccess(outcome.CaseID, outcome.RewardPoints, outcome.AwardedBadge, outcome.GradedAt)
		return recorded, nil
	})
	if err != nil {
		return fmt.Errorf("record solve of %q: %w", outcome.CaseID, err)
	}

	if !recorded {
		outcome.Verdict = model.VerdictAlreadySolved
		outcome.Message = "this case is already solved"
		outcome.RewardPoints = 0
		outcome.AwardedBadge = ""
		return nil
	}
	s.leaderboard.Invalidate(ctx)
	return nil
}
