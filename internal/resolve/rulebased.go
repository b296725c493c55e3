package resolve

import (
	"context"

	"talentrank/internal/scoring"
	"talentrank/internal/types"
)

// RuleBasedResolver is the terminal fallback tier: the linear scoring
// formula with no embedding term. It never fails except on cancellation.
type RuleBasedResolver struct {
	scorer *scoring.Scorer
}

var _ Resolver = (*RuleBasedResolver)(nil)

// NewRuleBasedResolver creates the fallback tier.
func NewRuleBasedResolver(scorer *scoring.Scorer) *RuleBasedResolver {
	return &RuleBasedResolver{scorer: scorer}
}

func (r *RuleBasedResolver) Resolve(ctx context.Context, req Request) (types.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return types.MatchResult{}, err
	}
	return r.scorer.ScoreRuleBased(req.Candidate, req.Job), nil
}
