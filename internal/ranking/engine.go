// Package ranking fans a candidate pool out over the resolution pipeline
// and produces a deterministic, score-ordered result list.
package ranking

import (
	"context"
	"sort"
	"sync"

	"talentrank/internal/errors"
	"talentrank/internal/resolve"
	"talentrank/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Candidate is one entry in a ranking pool. Insertion order in the slice
// is the final tie-break, so callers control it.
type Candidate struct {
	ID       string
	Features types.FeatureSet
}

// resolver is the slice of the orchestrator the engine needs.
type resolver interface {
	Resolve(ctx context.Context, req resolve.Request) (types.MatchResult, error)
}

// Engine ranks candidate pools against a job with bounded parallelism.
type Engine struct {
	orchestrator resolver
	maxParallel  int
	logger       *errors.Logger
}

// NewEngine creates a ranking engine. maxParallel bounds concurrent
// per-candidate resolutions within one Rank call.
func NewEngine(orchestrator resolver, maxParallel int, logger *errors.Logger) *Engine {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Engine{
		orchestrator: orchestrator,
		maxParallel:  maxParallel,
		logger:       logger,
	}
}

// Rank scores every candidate against the job and returns at most topN
// entries ordered by score descending, experience descending, insertion
// order ascending. All candidates are scored (and their results cached by
// the orchestrator) even when topN truncates the output.
//
// Candidates that fail even the full fallback chain are excluded rather
// than failing the batch; the returned error is then a BATCH_PARTIAL_FAILURE
// reported alongside the shorter list. Caller cancellation is the only
// path that returns no output.
func (e *Engine) Rank(ctx context.Context, job types.JobSpec, candidates []Candidate, topN int) (types.RankOutput, error) {
	tracer := otel.Tracer("talentrank.ranking")
	ctx, span := tracer.Start(ctx, "ranking.rank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.size", len(candidates)),
		attribute.Int("batch.top_n", topN),
	)

	type slot struct {
		result types.MatchResult
		err    error
	}
	slots := make([]slot, len(candidates))

	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate Candidate) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				slots[i].err = ctx.Err()
				return
			}
			defer func() { <-sem }()

			// Each candidate carries its own resolution deadlines inside
			// the orchestrator; a hung sibling cannot block this one.
			result, err := e.orchestrator.Resolve(ctx, resolve.Request{
				CandidateID: candidate.ID,
				Candidate:   candidate.Features,
				Job:         job,
			})
			slots[i] = slot{result: result, err: err}
		}(i, candidate)
	}
	wg.Wait()

	// Client cancellation fails the whole batch; a batch deadline only
	// drops the candidates that were still unresolved.
	if ctx.Err() == context.Canceled {
		return types.RankOutput{}, errors.NewInternalError(errors.ErrCodeCancelled,
			"Ranking cancelled by caller", ctx.Err())
	}

	output := types.RankOutput{Job: job}
	type rankedEntry struct {
		candidate Candidate
		result    types.MatchResult
		order     int
	}
	var ranked []rankedEntry

	for i, s := range slots {
		if s.err != nil {
			output.Excluded = append(output.Excluded, candidates[i].ID)
			if e.logger != nil {
				e.logger.Warn("Candidate excluded from ranking",
					"candidate_id", candidates[i].ID,
					"code", errors.CodeOf(s.err),
					"error", s.err)
			}
			continue
		}
		ranked = append(ranked, rankedEntry{candidate: candidates[i], result: s.result, order: i})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		ra, rb := ranked[a], ranked[b]
		if ra.result.Score != rb.result.Score {
			return ra.result.Score > rb.result.Score
		}
		if ra.candidate.Features.ExperienceYears != rb.candidate.Features.ExperienceYears {
			return ra.candidate.Features.ExperienceYears > rb.candidate.Features.ExperienceYears
		}
		return ra.order < rb.order
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	output.Ranked = make([]types.RankedCandidate, len(ranked))
	for i, entry := range ranked {
		output.Ranked[i] = types.RankedCandidate{
			CandidateID: entry.candidate.ID,
			Result:      entry.result,
		}
	}

	span.SetAttributes(
		attribute.Int("batch.ranked", len(output.Ranked)),
		attribute.Int("batch.excluded", len(output.Excluded)),
	)

	if len(output.Excluded) > 0 {
		return output, errors.NewRankingError(errors.ErrCodeBatchPartial,
			"One or more candidates could not be scored", nil)
	}
	return output, nil
}
