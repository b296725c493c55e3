package resolve

import (
	"context"
	"time"

	"talentrank/internal/cache"
	"talentrank/internal/config"
	"talentrank/internal/errors"
	"talentrank/internal/features"
	"talentrank/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// state is the orchestrator's per-request position in the escalation
// chain. Transitions are explicit so timeout, error and success paths are
// independently testable instead of hiding in exception flow.
type state int

const (
	stateLocalAttempt state = iota
	stateEscalated
	stateRuleBasedFallback
	stateDone
)

func (s state) String() string {
	switch s {
	case stateLocalAttempt:
		return "local_attempt"
	case stateEscalated:
		return "escalated"
	case stateRuleBasedFallback:
		return "rule_based_fallback"
	default:
		return "done"
	}
}

// Orchestrator drives one request through local → remote → rule-based
// resolution under per-tier deadlines. Each request walks the chain at
// most once; the rule-based tier cannot fail, so every non-cancelled
// request produces a result.
type Orchestrator struct {
	local     Resolver
	remote    Resolver // nil when the remote tier is disabled
	ruleBased Resolver

	localTimeout  time.Duration
	remoteTimeout time.Duration

	// remoteSlots caps outstanding remote calls globally. Acquisition is
	// cancellation-safe: a cancelled waiter leaves no slot held.
	remoteSlots chan struct{}

	results *cache.Cache[string, types.MatchResult]
	logger  *errors.Logger
}

// NewOrchestrator wires the three tiers. remote may be nil; results may be
// nil to disable result caching.
func NewOrchestrator(cfg config.EngineConfig, local, remote, ruleBased Resolver, results *cache.Cache[string, types.MatchResult], logger *errors.Logger) *Orchestrator {
	slots := cfg.MaxConcurrentResolutions
	if slots <= 0 {
		slots = 1
	}
	return &Orchestrator{
		local:         local,
		remote:        remote,
		ruleBased:     ruleBased,
		localTimeout:  cfg.LocalTimeout,
		remoteTimeout: cfg.RemoteTimeout,
		remoteSlots:   make(chan struct{}, slots),
		results:       results,
		logger:        logger,
	}
}

// Resolve produces a MatchResult for the request, consulting the result
// cache first. The only failure mode is caller cancellation, and partial
// results are never returned for a cancelled request.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (types.MatchResult, error) {
	tracer := otel.Tracer("talentrank.resolve.orchestrator")
	ctx, span := tracer.Start(ctx, "orchestrator.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", req.CandidateID))

	if err := o.cancelled(ctx); err != nil {
		return types.MatchResult{}, err
	}

	cacheKey := features.ResultCacheKey(req.Candidate.RawTextHash, req.Job.RawTextHash)
	if cached, ok := o.results.Get(cacheKey); ok {
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.String("result.source", string(cached.Source)),
		)
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var result types.MatchResult

	current := stateLocalAttempt
	for current != stateDone {
		if err := o.cancelled(ctx); err != nil {
			span.SetAttributes(attribute.String("terminal.state", current.String()))
			return types.MatchResult{}, err
		}

		var err error
		var next state
		switch current {
		case stateLocalAttempt:
			result, next, err = o.attemptLocal(ctx, req)
		case stateEscalated:
			result, next, err = o.attemptRemote(ctx, req)
		case stateRuleBasedFallback:
			result, next, err = o.attemptRuleBased(ctx, req)
		}
		if err != nil {
			// Only cancellation escapes the chain.
			span.RecordError(err)
			span.SetAttributes(attribute.String("terminal.state", current.String()))
			return types.MatchResult{}, err
		}
		current = next
	}

	o.results.Put(cacheKey, result)
	span.SetAttributes(attribute.String("result.source", string(result.Source)))
	return result, nil
}

// attemptLocal runs the local tier under its deadline. Timeouts and errors
// both escalate; only parent cancellation aborts.
func (o *Orchestrator) attemptLocal(ctx context.Context, req Request) (types.MatchResult, state, error) {
	localCtx, cancel := context.WithTimeout(ctx, o.localTimeout)
	defer cancel()

	result, err := o.local.Resolve(localCtx, req)
	if err == nil {
		return result, stateDone, nil
	}
	if cancelErr := o.cancelled(ctx); cancelErr != nil {
		return types.MatchResult{}, stateDone, cancelErr
	}

	if o.logger != nil {
		code := errors.CodeOf(err)
		if code == errors.ErrCodeLocalTimeout {
			o.logger.Warn("Local resolution timed out, escalating",
				"candidate_id", req.CandidateID,
				"timeout", o.localTimeout)
		} else {
			o.logger.Warn("Local resolution failed, escalating",
				"candidate_id", req.CandidateID,
				"code", code,
				"error", err)
		}
	}
	return types.MatchResult{}, stateEscalated, nil
}

// attemptRemote makes the single remote attempt, bounded by the global
// concurrency cap and the remote deadline. Any failure falls through to
// the rule-based tier.
func (o *Orchestrator) attemptRemote(ctx context.Context, req Request) (types.MatchResult, state, error) {
	if o.remote == nil {
		return types.MatchResult{}, stateRuleBasedFallback, nil
	}

	select {
	case o.remoteSlots <- struct{}{}:
	case <-ctx.Done():
		return types.MatchResult{}, stateDone, o.cancelled(ctx)
	}
	defer func() { <-o.remoteSlots }()

	remoteCtx, cancel := context.WithTimeout(ctx, o.remoteTimeout)
	defer cancel()

	result, err := o.remote.Resolve(remoteCtx, req)
	if err == nil {
		return result, stateDone, nil
	}
	if cancelErr := o.cancelled(ctx); cancelErr != nil {
		return types.MatchResult{}, stateDone, cancelErr
	}

	if o.logger != nil {
		o.logger.Warn("Remote resolution failed, falling back to rule-based scoring",
			"candidate_id", req.CandidateID,
			"job_hash", req.Job.RawTextHash,
			"code", errors.CodeOf(err),
			"error", err)
	}
	return types.MatchResult{}, stateRuleBasedFallback, nil
}

func (o *Orchestrator) attemptRuleBased(ctx context.Context, req Request) (types.MatchResult, state, error) {
	result, err := o.ruleBased.Resolve(ctx, req)
	if err != nil {
		return types.MatchResult{}, stateDone, o.wrapCancellation(err)
	}
	return result, stateDone, nil
}

// cancelled converts a cancelled context into the taxonomy's cancellation
// error, or nil if the context is still live.
func (o *Orchestrator) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return o.wrapCancellation(err)
	}
	return nil
}

func (o *Orchestrator) wrapCancellation(err error) error {
	return errors.NewInternalError(errors.ErrCodeCancelled,
		"Resolution cancelled by caller", err)
}
