// Package resolve implements the tiered resolution pipeline: a fast local
// scoring attempt under a deadline, escalation to a remote LLM-backed
// scorer, and a deterministic rule-based fallback that cannot fail.
package resolve

import (
	"context"

	"talentrank/internal/types"
)

// Request is one candidate/job pair to resolve into a MatchResult.
type Request struct {
	CandidateID string
	Candidate   types.FeatureSet
	Job         types.JobSpec
}

// Resolver is one tier of the resolution pipeline. Implementations must
// honor context cancellation and deadlines promptly.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (types.MatchResult, error)
}

// TokenUsage captures remote-tier token consumption for telemetry.
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}
