package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"talentrank/internal/config"
	"talentrank/internal/errors"
	"talentrank/internal/ranking"
	"talentrank/internal/types"
)

func testEngineConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			LocalTimeout:             2 * time.Second,
			RemoteTimeout:            5 * time.Second,
			MaxConcurrentResolutions: 4,
			DuplicateThreshold:       0.85,
			Scoring: config.ScoringConfig{
				SkillWeight:          0.5,
				ExperienceWeight:     0.3,
				SemanticWeight:       0.2,
				RequiredShare:        0.7,
				PreferredShare:       0.3,
				StronglyRecommendMin: 80,
				RecommendMin:         60,
				ConsiderMin:          40,
			},
		},
		Cache: config.CacheConfig{
			Enabled:           true,
			ResultTTL:         time.Minute,
			ResultCapacity:    8,
			EmbeddingTTL:      time.Minute,
			EmbeddingCapacity: 8,
		},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	eng, err := New(cfg, errors.NewLogger(slog.LevelError))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return eng
}

func TestNewWithoutAPIKeyDisablesRemote(t *testing.T) {
	cfg := testEngineConfig()
	cfg.AI.Enabled = true // enabled but no key configured

	eng := newTestEngine(t, cfg)
	if eng.RemoteEnabled() {
		t.Error("expected remote tier disabled without an API key")
	}
	if !eng.RemoteHealthy() {
		t.Error("disabled remote tier should report healthy")
	}
	if eng.BreakerStats() != nil {
		t.Error("expected nil breaker stats without remote tier")
	}
}

func TestExtractCandidateRegistersInPool(t *testing.T) {
	eng := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	fs := eng.ExtractCandidate(ctx, "c1", "Python engineer, 4 years", "c1@example.com")
	if !fs.HasSkill("python") {
		t.Errorf("expected python skill, got %v", fs.Skills)
	}
	if eng.PoolSize() != 1 {
		t.Errorf("expected pool size 1, got %d", eng.PoolSize())
	}

	// Empty id extracts without registering.
	eng.ExtractCandidate(ctx, "", "Another Python engineer", "")
	if eng.PoolSize() != 1 {
		t.Errorf("expected pool size to stay 1, got %d", eng.PoolSize())
	}
}

func TestMatchResolvesLocally(t *testing.T) {
	eng := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	fs := eng.ExtractCandidate(ctx, "c1", "Go and Kubernetes engineer, 6 years", "")
	job := eng.ExtractJob(ctx, "Platform Engineer\nGo and Kubernetes required, 3+ years")

	result, err := eng.Match(ctx, "c1", fs, job)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Source != types.SourceLocal {
		t.Errorf("expected local source, got %s", result.Source)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score out of range: %d", result.Score)
	}
}

func TestRankOrdersDescending(t *testing.T) {
	eng := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	job := eng.ExtractJob(ctx, "Backend Engineer\nPython and Go required, 3+ years")
	candidates := []ranking.Candidate{
		{ID: "weak", Features: eng.ExtractCandidate(ctx, "", "Java developer, 1 year", "")},
		{ID: "strong", Features: eng.ExtractCandidate(ctx, "", "Python and Go engineer, 6 years", "")},
	}

	output, err := eng.Rank(ctx, job, candidates, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(output.Ranked) != 2 {
		t.Fatalf("expected 2 ranked, got %d", len(output.Ranked))
	}
	if output.Ranked[0].CandidateID != "strong" {
		t.Errorf("expected strong first, got %s", output.Ranked[0].CandidateID)
	}

	// Ranked candidates joined the duplicate pool.
	if eng.PoolSize() != 2 {
		t.Errorf("expected ranked candidates in pool, got size %d", eng.PoolSize())
	}
}

func TestRankTopN(t *testing.T) {
	eng := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	job := eng.ExtractJob(ctx, "Engineer\nPython required")
	var candidates []ranking.Candidate
	for _, id := range []string{"a", "b", "c"} {
		candidates = append(candidates, ranking.Candidate{
			ID:       id,
			Features: eng.ExtractCandidate(ctx, "", "Python developer "+id, ""),
		})
	}

	output, err := eng.Rank(ctx, job, candidates, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(output.Ranked) != 2 {
		t.Errorf("expected topN to cap at 2, got %d", len(output.Ranked))
	}
}

func TestDuplicatesExcludesSelf(t *testing.T) {
	eng := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	text := "Staff engineer, 8 years of Go"
	fs := eng.ExtractCandidate(ctx, "c1", text, "")

	report := eng.Duplicates("c1", fs)
	if len(report.Duplicates) != 0 {
		t.Errorf("candidate should not match itself, got %v", report.Duplicates)
	}

	// A second identical record is flagged.
	eng.ExtractCandidate(ctx, "c2", text, "")
	report = eng.Duplicates("c1", fs)
	if len(report.Duplicates) != 1 {
		t.Fatalf("expected 1 duplicate, got %d", len(report.Duplicates))
	}
	if report.Duplicates[0].MatchedID != "c2" {
		t.Errorf("expected match against c2, got %s", report.Duplicates[0].MatchedID)
	}
	if report.Threshold != 0.85 {
		t.Errorf("expected configured threshold in report, got %v", report.Threshold)
	}
}

func TestCacheStatsWithCachingDisabled(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Cache.Enabled = false

	eng := newTestEngine(t, cfg)
	stats := eng.CacheStats()
	for name, s := range stats {
		if s.Size != 0 || s.Capacity != 0 {
			t.Errorf("expected zero stats for disabled cache %s, got %+v", name, s)
		}
	}

	// The engine still resolves without caches.
	ctx := context.Background()
	fs := eng.ExtractCandidate(ctx, "c1", "Python engineer, 4 years", "")
	job := eng.ExtractJob(ctx, "Engineer\nPython required")
	if _, err := eng.Match(ctx, "c1", fs, job); err != nil {
		t.Fatalf("Match without caches failed: %v", err)
	}
}
