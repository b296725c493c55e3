// Package dedupe flags likely duplicate candidate records by comparing
// contact identifiers, skill sets and embeddings.
package dedupe

import (
	"iter"
	"sort"

	"talentrank/internal/errors"
	"talentrank/internal/features"
	"talentrank/internal/types"
)

// Blend weights for the similarity score when no exact contact match
// short-circuits. With an embedding unavailable on either side the skill
// term carries the full weight.
const (
	skillBlendWeight     = 0.5
	embeddingBlendWeight = 0.5
)

// PoolEntry is one existing record offered to the duplicate scan.
type PoolEntry struct {
	ID       string
	Features types.FeatureSet
}

// Pool is a lazy, finite, restartable sequence of existing records. It can
// be backed by a paginated store without materializing the whole table;
// each FindDuplicates call consumes it independently.
type Pool = iter.Seq2[string, types.FeatureSet]

// PoolOf adapts a slice to a Pool, preserving insertion order.
func PoolOf(entries []PoolEntry) Pool {
	return func(yield func(string, types.FeatureSet) bool) {
		for _, e := range entries {
			if !yield(e.ID, e.Features) {
				return
			}
		}
	}
}

// Resolver scans candidate pools for near duplicates.
type Resolver struct {
	threshold float64
	logger    *errors.Logger
}

// NewResolver creates a resolver with the configured similarity threshold.
func NewResolver(threshold float64, logger *errors.Logger) *Resolver {
	return &Resolver{threshold: threshold, logger: logger}
}

// Threshold returns the configured similarity cutoff.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// FindDuplicates returns all pool entries whose blended similarity to the
// candidate meets the threshold, sorted by similarity descending with ties
// broken by earliest extraction time then pool order (oldest record wins
// as canonical).
func (r *Resolver) FindDuplicates(candidateID string, candidate types.FeatureSet, pool Pool) []types.DuplicateCandidate {
	type hit struct {
		dup        types.DuplicateCandidate
		computedAt int64
		order      int
	}
	var hits []hit

	order := 0
	for id, existing := range pool {
		position := order
		order++
		if id == candidateID {
			continue
		}

		similarity, matchedFields := r.similarity(candidate, existing)
		if similarity < r.threshold {
			continue
		}

		hits = append(hits, hit{
			dup: types.DuplicateCandidate{
				CandidateID:   candidateID,
				MatchedID:     id,
				Similarity:    similarity,
				MatchedFields: matchedFields,
			},
			computedAt: existing.ComputedAt.UnixNano(),
			order:      position,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dup.Similarity != hits[j].dup.Similarity {
			return hits[i].dup.Similarity > hits[j].dup.Similarity
		}
		if hits[i].computedAt != hits[j].computedAt {
			return hits[i].computedAt < hits[j].computedAt
		}
		return hits[i].order < hits[j].order
	})

	duplicates := make([]types.DuplicateCandidate, len(hits))
	for i, h := range hits {
		duplicates[i] = h.dup
	}

	if len(duplicates) > 0 && r.logger != nil {
		r.logger.Info("Duplicate candidates found",
			"candidate_id", candidateID,
			"matches", len(duplicates),
			"threshold", r.threshold)
	}
	return duplicates
}

// similarity blends exact contact match, skill-set Jaccard and embedding
// cosine. An exact email match short-circuits to 1.0 by contract,
// regardless of how much the rest of the record diverges.
func (r *Resolver) similarity(a, b types.FeatureSet) (float64, []string) {
	if a.Email != "" && a.Email == b.Email {
		return 1.0, []string{"email"}
	}

	var matchedFields []string

	skillSim := features.Jaccard(a.Skills, b.Skills)
	if skillSim > 0 {
		matchedFields = append(matchedFields, "skills")
	}

	embedSim, ok := features.Cosine(a.Embedding, b.Embedding)
	if !ok {
		// Similarity unavailable: the skill term carries the full weight
		// rather than diluting against a phantom zero.
		return skillSim, matchedFields
	}
	matchedFields = append(matchedFields, "embedding")

	// Cosine is mapped from [-1,1] to [0,1] before blending.
	blended := skillSim*skillBlendWeight + (embedSim+1)/2*embeddingBlendWeight
	return blended, matchedFields
}
