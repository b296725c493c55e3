package scoring

import (
	"math/rand"
	"slices"
	"strings"
	"testing"

	"talentrank/internal/config"
	"talentrank/internal/types"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		SkillWeight:          0.5,
		ExperienceWeight:     0.3,
		SemanticWeight:       0.2,
		RequiredShare:        0.7,
		PreferredShare:       0.3,
		StronglyRecommendMin: 80,
		RecommendMin:         60,
		ConsiderMin:          40,
	}
}

func TestScoreStrongCandidate(t *testing.T) {
	// Candidate {python, react, aws} 5y vs required {python, react},
	// preferred {aws}, minExperience 3: full skill and experience terms.
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:             []string{"aws", "python", "react"},
		ExperienceYears:    5,
		AchievementSignals: 10,
		Embedding:          []float32{1, 0},
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"python", "react"},
		PreferredSkills:    []string{"aws"},
		MinExperienceYears: 3,
		Embedding:          []float32{1, 0},
	}

	out := s.Score(candidate, job)
	if out.Result.Score < 80 || out.Result.Score > 100 {
		t.Errorf("expected score in [80,100], got %d", out.Result.Score)
	}
	if out.Result.Recommendation != types.StronglyRecommend {
		t.Errorf("expected strongly_recommend, got %s", out.Result.Recommendation)
	}
	if out.Degraded {
		t.Error("expected no degradation with embeddings present")
	}
	if out.Result.Source != types.SourceLocal {
		t.Errorf("expected local source, got %s", out.Result.Source)
	}
}

func TestScoreWeakCandidate(t *testing.T) {
	// Candidate {java} 1y vs required {python, react}, minExperience 3:
	// zero skill coverage, experience ramp 33.
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:          []string{"java"},
		ExperienceYears: 1,
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"python", "react"},
		MinExperienceYears: 3,
	}

	out := s.Score(candidate, job)
	if out.Result.Score > 40 {
		t.Errorf("expected score <= 40, got %d", out.Result.Score)
	}
	if out.Result.Recommendation != types.NotRecommended {
		t.Errorf("expected not_recommended, got %s", out.Result.Recommendation)
	}

	wantGaps := []string{"python", "react", "shortfall"}
	for _, fragment := range wantGaps {
		found := false
		for _, gap := range out.Result.Gaps {
			if strings.Contains(strings.ToLower(gap), fragment) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected a gap mentioning %q, got %v", fragment, out.Result.Gaps)
		}
	}
}

func TestScoreDeterminism(t *testing.T) {
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:             []string{"go", "kubernetes"},
		ExperienceYears:    4,
		AchievementSignals: 3,
		Embedding:          []float32{0.3, 0.7, -0.1},
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"go", "terraform"},
		PreferredSkills:    []string{"kubernetes"},
		MinExperienceYears: 5,
		Embedding:          []float32{0.2, 0.6, 0.1},
	}

	a := s.Score(candidate, job)
	b := s.Score(candidate, job)

	if a.Result.Score != b.Result.Score {
		t.Errorf("expected identical scores, got %d and %d", a.Result.Score, b.Result.Score)
	}
	if !slices.Equal(a.Result.Strengths, b.Result.Strengths) || !slices.Equal(a.Result.Gaps, b.Result.Gaps) {
		t.Error("expected identical strengths and gaps")
	}
	if a.Result.Recommendation != b.Result.Recommendation {
		t.Error("expected identical recommendations")
	}
}

func TestScoreBoundedness(t *testing.T) {
	s := New(testScoringConfig())
	rng := rand.New(rand.NewSource(42))
	skillPool := []string{"go", "python", "java", "react", "aws", "sql", "docker", "kafka"}

	for i := 0; i < 500; i++ {
		candidate := types.FeatureSet{
			Skills:             randomSubset(rng, skillPool),
			ExperienceYears:    rng.Float64() * 40,
			AchievementSignals: rng.Intn(50),
			Embedding:          randomVector(rng),
		}
		job := types.JobSpec{
			RequiredSkills:     randomSubset(rng, skillPool),
			PreferredSkills:    randomSubset(rng, skillPool),
			MinExperienceYears: rng.Float64() * 20,
			Embedding:          randomVector(rng),
		}

		for _, result := range []types.MatchResult{s.Score(candidate, job).Result, s.ScoreRuleBased(candidate, job)} {
			if result.Score < 0 || result.Score > 100 {
				t.Fatalf("score %d out of [0,100] for candidate %+v job %+v", result.Score, candidate, job)
			}
		}
	}
}

func TestScoreMonotonicity(t *testing.T) {
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:          []string{"go", "python", "sql"},
		ExperienceYears: 4,
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"go", "rust"},
		MinExperienceYears: 3,
	}
	base := s.Score(candidate, job).Result.Score

	// Adding a required skill the candidate already has must not lower
	// the score.
	withHeld := job
	withHeld.RequiredSkills = []string{"go", "python", "rust"}
	if got := s.Score(candidate, withHeld).Result.Score; got < base {
		t.Errorf("adding a held required skill lowered score: %d -> %d", base, got)
	}

	// Removing a required skill the candidate lacks must not lower it.
	withoutMissing := job
	withoutMissing.RequiredSkills = []string{"go"}
	if got := s.Score(candidate, withoutMissing).Result.Score; got < base {
		t.Errorf("removing a missing required skill lowered score: %d -> %d", base, got)
	}
}

func TestScoreNoRequiredSkillsTermIsFull(t *testing.T) {
	s := New(testScoringConfig())
	candidate := types.FeatureSet{ExperienceYears: 10}
	job := types.JobSpec{MinExperienceYears: 2}

	out := s.Score(candidate, job)
	// Skill and experience terms at 100; only the semantic term (degraded
	// to achievement density 0) drags the score.
	if out.Result.Score != 80 {
		t.Errorf("expected 0.5*100 + 0.3*100 + 0.2*0 = 80, got %d", out.Result.Score)
	}
	if !out.Degraded {
		t.Error("expected degraded outcome with no embeddings")
	}
}

func TestScoreMissingEmbeddingDegradesNotFails(t *testing.T) {
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:             []string{"python"},
		ExperienceYears:    5,
		AchievementSignals: 4,
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"python"},
		MinExperienceYears: 3,
		Embedding:          []float32{1, 0},
	}

	out := s.Score(candidate, job)
	if !out.Degraded {
		t.Error("expected degraded outcome with a missing candidate embedding")
	}
	// Semantic term falls back to achievement density 40.
	want := 0.5*100 + 0.3*100 + 0.2*40
	if out.Result.Score != int(want) {
		t.Errorf("expected score %d, got %d", int(want), out.Result.Score)
	}
}

func TestScoreRuleBasedRedistributesSemanticWeight(t *testing.T) {
	s := New(testScoringConfig())
	candidate := types.FeatureSet{
		Skills:          []string{"python"},
		ExperienceYears: 3,
		// Embedding present but must be ignored by the rule-based path.
		Embedding: []float32{1, 0},
	}
	job := types.JobSpec{
		RequiredSkills:     []string{"python"},
		MinExperienceYears: 3,
		Embedding:          []float32{-1, 0},
	}

	result := s.ScoreRuleBased(candidate, job)
	if result.Score != 100 {
		t.Errorf("expected 100 with full skill and experience terms, got %d", result.Score)
	}
	if result.Source != types.SourceRuleBased {
		t.Errorf("expected rule_based source, got %s", result.Source)
	}
}

func TestScoreStrengthsGapsNeverBothEmpty(t *testing.T) {
	s := New(testScoringConfig())
	out := s.Score(types.FeatureSet{}, types.JobSpec{})
	if len(out.Result.Strengths) == 0 && len(out.Result.Gaps) == 0 {
		t.Error("expected at least one strength or gap line")
	}
}

func TestExperienceBeyondMinimumNoBonus(t *testing.T) {
	s := New(testScoringConfig())
	job := types.JobSpec{RequiredSkills: []string{"go"}, MinExperienceYears: 3}
	at := types.FeatureSet{Skills: []string{"go"}, ExperienceYears: 3}
	beyond := types.FeatureSet{Skills: []string{"go"}, ExperienceYears: 30}

	if a, b := s.Score(at, job).Result.Score, s.Score(beyond, job).Result.Score; a != b {
		t.Errorf("expected no bonus beyond minimum experience, got %d vs %d", a, b)
	}
}

func randomSubset(rng *rand.Rand, pool []string) []string {
	var subset []string
	for _, s := range pool {
		if rng.Intn(2) == 0 {
			subset = append(subset, s)
		}
	}
	return subset
}

func randomVector(rng *rand.Rand) []float32 {
	if rng.Intn(4) == 0 {
		return nil
	}
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return vec
}
