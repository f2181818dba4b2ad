// Package grader runs a submission against one case and decides its verdict.
// It never touches the store: the caller applies an accepted outcome to the ledger.
package grader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"detective_lab/internal/domain/catalog"
	"detective_lab/internal/domain/model"
	"detective_lab/internal/sandbox"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Timeout       time.Duration
	DefaultReward int
}

type Grader struct {
	runtimes *sandbox.Registry
	catalog  *catalog.Catalog
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

func New(runtimes *sandbox.Registry, cat *catalog.Catalog, opts Options, log *zap.Logger) *Grader {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &Grader{runtimes: runtimes, catalog: cat, opts: opts, log: log, now: time.Now}
}

func (g *Grader) Runtimes() *sandbox.Registry {
	return g.runtimes
}

// Reward is the number of points an accepted submission of c earns.
func (g *Grader) Reward(c model.Case) int {
	if c.Reward > 0 {
		return c.Reward
	}
	return g.opts.DefaultReward
}

// Grade executes code for case c on behalf of a learner whose ledger is progress
// (nil means nothing solved yet). The returned error is reserved for requests that
// cannot be graded at all, such as an unknown runtime; everything a submission can
// cause is reported through the outcome's verdict.
func (g *Grader) Grade(ctx context.Context, c model.Case, runtimeSlug, code string, progress *model.ProgressRecord) (*model.Outcome, error) {
	rt, err := g.runtimes.Get(runtimeSlug)
	if err != nil {
		return nil, err
	}

	started := g.now()
	outcome := &model.Outcome{
		ID:       uuid.NewString(),
		CaseID:   c.ID,
		Runtime:  rt.Describe().Slug,
		GradedAt: started.UTC(),
	}
	if progress == nil {
		progress = model.NewProgressRecord()
	}

	solved := progress.Solved()
	switch {
	case !g.catalog.IsUnlocked(c.ID, solved):
		outcome.Verdict = model.VerdictCaseLocked
		outcome.Message = fmt.Sprintf("solve %q before attempting this case", c.Prerequisite)
		return outcome, nil
	case solved.Contains(c.ID):
		outcome.Verdict = model.VerdictAlreadySolved
		outcome.Message = "this case is already solved"
		return outcome, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	seed := map[string]any{c.Dataset.Name: c.Dataset.Value}
	exec, err := rt.Run(runCtx, code, seed)
	outcome.DurationMs = g.now().Sub(started).Milliseconds()
	if err != nil {
		switch {
		case errors.Is(err, sandbox.ErrTimeout):
			outcome.Verdict = model.VerdictTimeout
			outcome.Message = fmt.Sprintf("submission exceeded its budget of %s", g.opts.Timeout)
		case errors.Is(err, sandbox.ErrExecution):
			outcome.Verdict = model.VerdictExecutionError
			outcome.Message = strings.TrimPrefix(err.Error(), sandbox.ErrExecution.Error()+": ")
		default:
			return nil, fmt.Errorf("run submission for case %q: %w", c.ID, err)
		}
		g.log.Debug("Submission did not run to completion",
			zap.String("case", c.ID), zap.String("runtime", outcome.Runtime),
			zap.String("verdict", string(outcome.Verdict)), zap.Error(err))
		return outcome, nil
	}
	outcome.Output = exec.Output

	args, missing := selectArgs(c.Predicate, exec.Bindings)
	outcome.Bindings = args

	passed, err := check(c.Predicate, args)
	if err != nil {
		g.log.Error("Predicate faulted", zap.String("case", c.ID), zap.Error(err))
		outcome.Verdict = model.VerdictGradingError
		outcome.Message = err.Error()
		return outcome, nil
	}
	if !passed {
		outcome.Verdict = model.VerdictIncorrect
		outcome.Message = "the evidence does not support that conclusion"
		if len(missing) > 0 {
			outcome.Message += fmt.Sprintf("; not defined: %s", strings.Join(missing, ", "))
		}
		return outcome, nil
	}

	outcome.Verdict = model.VerdictAccepted
	outcome.Message = "case solved"
	outcome.RewardPoints = g.Reward(c)
	if c.Concept != "" && !progress.HasBadge(c.Concept) {
		outcome.AwardedBadge = c.Concept
	}
	return outcome, nil
}

// selectArgs keeps only the bindings the predicate declares. Declared names the
// submission never defined are returned as missing.
func selectArgs(p model.Predicate, bindings map[string]any) (model.Args, []string) {
	args := model.Args{}
	var missing []string
	for _, name := range p.Names() {
		v, ok := bindings[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		args[name] = v
	}
	return args, missing
}

func check(p model.Predicate, args model.Args) (passed bool, err error) {
	if p.Check == nil {
		return false, errors.New("case has no predicate")
	}
	defer func() {
		if rec := recover(); rec != nil {
			passed, err = false, fmt.Errorf("predicate panicked: %v", rec)
		}
	}()
	return p.Check(args), nil
}
