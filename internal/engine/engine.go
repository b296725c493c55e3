package engine

import (
	"context"
	"time"

	"talentrank/internal/cache"
	"talentrank/internal/config"
	"talentrank/internal/dedupe"
	"talentrank/internal/errors"
	"talentrank/internal/features"
	"talentrank/internal/ranking"
	"talentrank/internal/resolve"
	"talentrank/internal/scoring"
	"talentrank/internal/store"
	"talentrank/internal/types"
)

// Engine wires the extraction, scoring, resolution and ranking components
// into one unit the CLI and the HTTP server share. Construction is the only
// place the pipeline is assembled; everything downstream works against the
// already-built pieces.
type Engine struct {
	cfg *config.Config

	extractor    *features.Extractor
	scorer       *scoring.Scorer
	orchestrator *resolve.Orchestrator
	ranker       *ranking.Engine
	dedupe       *dedupe.Resolver
	pool         *store.Memory

	results    *cache.Cache[string, types.MatchResult]
	embeddings *cache.Cache[string, []float32]

	remote  *resolve.GeminiResolver // nil when the remote tier is disabled
	watcher *features.VocabularyWatcher

	logger *errors.Logger
}

// New assembles the engine from configuration. The remote tier is enabled
// only when the AI provider is configured with an API key; without it the
// orchestrator escalates straight to the rule-based fallback.
func New(cfg *config.Config, logger *errors.Logger) (*Engine, error) {
	var resultCache *cache.Cache[string, types.MatchResult]
	var embeddingCache *cache.Cache[string, []float32]
	if cfg.Cache.Enabled {
		resultCache = cache.New[string, types.MatchResult](cfg.Cache.ResultCapacity, cfg.Cache.ResultTTL)
		embeddingCache = cache.New[string, []float32](cfg.Cache.EmbeddingCapacity, cfg.Cache.EmbeddingTTL)
	}

	remoteEnabled := cfg.AI.Enabled && cfg.AI.APIKey != ""
	if cfg.AI.Enabled && cfg.AI.APIKey == "" && logger != nil {
		logger.Warn("AI provider enabled but no API key configured, remote tier disabled")
	}

	var embedder features.EmbeddingProvider
	if remoteEnabled {
		ge, err := features.NewGeminiEmbedder(cfg.AI.APIKey, cfg.AI.EmbeddingModel, logger)
		if err != nil {
			return nil, err
		}
		embedder = ge
	} else {
		embedder = features.NewLocalEmbedder()
	}

	extractor := features.NewExtractor(embedder, embeddingCache, logger)
	if cfg.Engine.VocabularyFile != "" {
		vocab, err := features.LoadVocabulary(cfg.Engine.VocabularyFile)
		if err != nil {
			return nil, err
		}
		extractor.SetVocabulary(vocab)
	}

	scorer := scoring.New(cfg.Engine.Scoring)
	local := resolve.NewLocalResolver(scorer, cfg.Engine.EscalateOnDegraded)
	ruleBased := resolve.NewRuleBasedResolver(scorer)

	var gemini *resolve.GeminiResolver
	var remote resolve.Resolver
	if remoteEnabled {
		g, err := resolve.NewGeminiResolver(cfg.AI, scorer, logger)
		if err != nil {
			return nil, err
		}
		gemini = g
		remote = g
	}

	orchestrator := resolve.NewOrchestrator(cfg.Engine, local, remote, ruleBased, resultCache, logger)
	ranker := ranking.NewEngine(orchestrator, cfg.Engine.MaxConcurrentResolutions, logger)

	return &Engine{
		cfg:          cfg,
		extractor:    extractor,
		scorer:       scorer,
		orchestrator: orchestrator,
		ranker:       ranker,
		dedupe:       dedupe.NewResolver(cfg.Engine.DuplicateThreshold, logger),
		pool:         store.NewMemory(),
		results:      resultCache,
		embeddings:   embeddingCache,
		remote:       gemini,
		logger:       logger,
	}, nil
}

// StartVocabularyWatcher begins watching the configured vocabulary file and
// hot-swaps the extractor vocabulary on change. No-op when no file is set.
func (e *Engine) StartVocabularyWatcher() error {
	if e.cfg.Engine.VocabularyFile == "" {
		return nil
	}
	e.watcher = features.NewVocabularyWatcher(e.cfg.Engine.VocabularyFile, e.extractor, time.Second, e.logger)
	return e.watcher.Start()
}

// Close releases background resources held by the engine.
func (e *Engine) Close() error {
	if e.watcher != nil {
		return e.watcher.Stop()
	}
	return nil
}

// ExtractCandidate normalizes candidate text into a FeatureSet and registers
// it in the duplicate pool under the given id.
func (e *Engine) ExtractCandidate(ctx context.Context, id, text, email string) types.FeatureSet {
	fs := e.extractor.ExtractCandidate(ctx, text, email)
	if id != "" {
		e.pool.PutCandidate(id, fs)
	}
	return fs
}

// ExtractJob normalizes free-form job text into a JobSpec.
func (e *Engine) ExtractJob(ctx context.Context, text string) types.JobSpec {
	return e.extractor.ExtractJob(ctx, text)
}

// JobFromInput normalizes a structured job description into a JobSpec.
func (e *Engine) JobFromInput(ctx context.Context, input types.JobInput) types.JobSpec {
	return e.extractor.JobFromInput(ctx, input)
}

// Match resolves one candidate against one job through the tiered pipeline.
// Resolved results are written through to the store keyed by content hash;
// reuse within the TTL window stays the orchestrator's concern.
func (e *Engine) Match(ctx context.Context, candidateID string, candidate types.FeatureSet, job types.JobSpec) (types.MatchResult, error) {
	result, err := e.orchestrator.Resolve(ctx, resolve.Request{
		CandidateID: candidateID,
		Candidate:   candidate,
		Job:         job,
	})
	if err == nil {
		e.pool.PutResult(features.ResultCacheKey(candidate.RawTextHash, job.RawTextHash), result)
	}
	return result, err
}

// Rank scores a batch of candidates against a job and returns them in
// deterministic descending order. topN <= 0 returns the full ranking.
func (e *Engine) Rank(ctx context.Context, job types.JobSpec, candidates []ranking.Candidate, topN int) (types.RankOutput, error) {
	byID := make(map[string]types.FeatureSet, len(candidates))
	for _, c := range candidates {
		e.pool.PutCandidate(c.ID, c.Features)
		byID[c.ID] = c.Features
	}

	output, err := e.ranker.Rank(ctx, job, candidates, topN)
	for _, rc := range output.Ranked {
		if fs, ok := byID[rc.CandidateID]; ok {
			e.pool.PutResult(features.ResultCacheKey(fs.RawTextHash, job.RawTextHash), rc.Result)
		}
	}
	return output, err
}

// Duplicates scans the pool for likely duplicates of the given candidate.
// The candidate itself is excluded from the scan by id.
func (e *Engine) Duplicates(candidateID string, candidate types.FeatureSet) types.DuplicateReport {
	hits := e.dedupe.FindDuplicates(candidateID, candidate, e.pool.Candidates())
	return types.DuplicateReport{
		CandidateID: candidateID,
		Threshold:   e.dedupe.Threshold(),
		Duplicates:  hits,
	}
}

// AddToPool registers an already-extracted candidate in the duplicate pool.
func (e *Engine) AddToPool(id string, fs types.FeatureSet) {
	e.pool.PutCandidate(id, fs)
}

// PoolSize reports how many candidates the duplicate pool holds.
func (e *Engine) PoolSize() int {
	return e.pool.Len()
}

// Vocabulary exposes the active skills vocabulary.
func (e *Engine) Vocabulary() *features.Vocabulary {
	return e.extractor.Vocabulary()
}

// RemoteEnabled reports whether the remote resolution tier is configured.
func (e *Engine) RemoteEnabled() bool {
	return e.remote != nil
}

// RemoteHealthy reports whether the remote tier circuit breaker admits
// requests. True when the remote tier is disabled entirely, since no remote
// failures are possible then.
func (e *Engine) RemoteHealthy() bool {
	if e.remote == nil {
		return true
	}
	return e.remote.Healthy()
}

// BreakerStats returns circuit breaker counters for the remote tier, or nil
// when the remote tier is disabled.
func (e *Engine) BreakerStats() map[string]any {
	if e.remote == nil {
		return nil
	}
	return e.remote.BreakerStats()
}

// RemoteTokenUsage returns the token usage of the most recent remote
// resolution, or nil when the remote tier is disabled or has not been used.
func (e *Engine) RemoteTokenUsage() *resolve.TokenUsage {
	if e.remote == nil {
		return nil
	}
	return e.remote.LastTokenUsage()
}

// CacheStats returns occupancy and hit counters for the result and embedding
// caches. Zero-valued stats are returned when caching is disabled.
func (e *Engine) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"results":    e.results.Stats(),
		"embeddings": e.embeddings.Stats(),
	}
}
