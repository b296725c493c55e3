package resolve

import (
	"context"

	"talentrank/internal/errors"
	"talentrank/internal/scoring"
	"talentrank/internal/types"
)

// LocalResolver runs the pure scorer. Scoring is CPU-bound, so it runs on
// its own goroutine and the deadline is enforced by select rather than by
// the computation itself.
type LocalResolver struct {
	scorer *scoring.Scorer
	// escalateOnDegraded turns a degraded (embedding-less) local result
	// into a low-confidence error so the orchestrator escalates it.
	escalateOnDegraded bool
}

var _ Resolver = (*LocalResolver)(nil)

// NewLocalResolver creates the local tier.
func NewLocalResolver(scorer *scoring.Scorer, escalateOnDegraded bool) *LocalResolver {
	return &LocalResolver{scorer: scorer, escalateOnDegraded: escalateOnDegraded}
}

// Resolve scores the pair locally, failing with a local error when the
// context expires first or the result is too low-confidence to keep.
func (l *LocalResolver) Resolve(ctx context.Context, req Request) (types.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return types.MatchResult{}, errors.NewLocalError(errors.ErrCodeLocalTimeout,
				"Local scoring exceeded its deadline", err)
		}
		return types.MatchResult{}, err
	}

	type scored struct {
		outcome scoring.Outcome
	}
	done := make(chan scored, 1)

	go func() {
		done <- scored{outcome: l.scorer.Score(req.Candidate, req.Job)}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return types.MatchResult{}, errors.NewLocalError(errors.ErrCodeLocalTimeout,
				"Local scoring exceeded its deadline", ctx.Err())
		}
		return types.MatchResult{}, ctx.Err()
	case s := <-done:
		if s.outcome.Degraded && l.escalateOnDegraded {
			return types.MatchResult{}, errors.NewLocalError(errors.ErrCodeLocalError,
				"Local result degraded: semantic similarity unavailable", nil)
		}
		return s.outcome.Result, nil
	}
}
