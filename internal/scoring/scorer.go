// Package scoring computes bounded match scores from feature sets. The
// scorer is a pure function over its inputs and configuration: no I/O, no
// randomness, identical inputs always produce identical results.
package scoring

import (
	"fmt"
	"math"
	"time"

	"talentrank/internal/config"
	"talentrank/internal/features"
	"talentrank/internal/types"
)

// achievementDensityStep converts an achievement-signal count into a
// [0,100] density: each signal is worth 10 points, capped.
const achievementDensityStep = 10

// Scorer computes match scores with deployment-fixed weights and
// thresholds so all results in a ranking run are comparable.
type Scorer struct {
	cfg config.ScoringConfig
}

// Outcome is a scored result plus a quality flag.
type Outcome struct {
	Result types.MatchResult
	// Degraded is set when the semantic term was computed without an
	// embedding (similarity unavailable). The orchestrator may escalate
	// degraded local results to the remote tier.
	Degraded bool
}

// New creates a scorer. The configuration is assumed validated.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the full weighted score including the semantic term.
func (s *Scorer) Score(candidate types.FeatureSet, job types.JobSpec) Outcome {
	skillTerm := s.skillCoverage(candidate, job)
	expTerm := experienceFit(candidate, job)
	semanticTerm, degraded := s.semanticTerm(candidate, job)

	raw := skillTerm*s.cfg.SkillWeight +
		expTerm*s.cfg.ExperienceWeight +
		semanticTerm*s.cfg.SemanticWeight

	result := s.buildResult(candidate, job, raw, types.SourceLocal, false)
	return Outcome{Result: result, Degraded: degraded}
}

// ScoreRuleBased computes the deterministic fallback score: the same
// linear formula with the semantic term dropped and its weight
// redistributed pro rata over the remaining terms. It cannot fail.
func (s *Scorer) ScoreRuleBased(candidate types.FeatureSet, job types.JobSpec) types.MatchResult {
	skillTerm := s.skillCoverage(candidate, job)
	expTerm := experienceFit(candidate, job)

	remaining := s.cfg.SkillWeight + s.cfg.ExperienceWeight
	if remaining <= 0 {
		remaining = 1
	}
	raw := skillTerm*(s.cfg.SkillWeight/remaining) +
		expTerm*(s.cfg.ExperienceWeight/remaining)

	return s.buildResult(candidate, job, raw, types.SourceRuleBased, true)
}

// Recommend buckets a score with the configured thresholds. Exposed so the
// remote tier can re-bucket model output consistently.
func (s *Scorer) Recommend(score int) types.Recommendation {
	switch {
	case score >= s.cfg.StronglyRecommendMin:
		return types.StronglyRecommend
	case score >= s.cfg.RecommendMin:
		return types.Recommend
	case score >= s.cfg.ConsiderMin:
		return types.Consider
	default:
		return types.NotRecommended
	}
}

// skillCoverage returns the [0,100] skill term. With no required skills
// there is no requirement to fail, so the term is 100.
func (s *Scorer) skillCoverage(candidate types.FeatureSet, job types.JobSpec) float64 {
	if len(job.RequiredSkills) == 0 {
		return 100
	}

	requiredMatched := 0
	for _, skill := range job.RequiredSkills {
		if candidate.HasSkill(skill) {
			requiredMatched++
		}
	}
	preferredMatched := 0
	for _, skill := range job.PreferredSkills {
		if candidate.HasSkill(skill) {
			preferredMatched++
		}
	}

	requiredRatio := float64(requiredMatched) / float64(len(job.RequiredSkills))
	preferredRatio := float64(preferredMatched) / math.Max(float64(len(job.PreferredSkills)), 1)

	return (requiredRatio*s.cfg.RequiredShare + preferredRatio*s.cfg.PreferredShare) * 100
}

// experienceFit returns the [0,100] experience term: 100 at or above the
// minimum, a linear ramp below it, and no bonus beyond the minimum.
func experienceFit(candidate types.FeatureSet, job types.JobSpec) float64 {
	if job.MinExperienceYears <= 0 || candidate.ExperienceYears >= job.MinExperienceYears {
		return 100
	}
	term := candidate.ExperienceYears / job.MinExperienceYears * 100
	return math.Max(term, 0)
}

// semanticTerm blends embedding cosine similarity (mapped to [0,100]) with
// achievement-signal density 50/50. Without a usable embedding the term
// falls back to density alone and reports degraded.
func (s *Scorer) semanticTerm(candidate types.FeatureSet, job types.JobSpec) (float64, bool) {
	density := math.Min(float64(candidate.AchievementSignals)*achievementDensityStep, 100)

	sim, ok := features.Cosine(candidate.Embedding, job.Embedding)
	if !ok {
		return density, true
	}

	similarity := (sim + 1) / 2 * 100
	return math.Min(similarity*0.5+density*0.5, 100), false
}

func (s *Scorer) buildResult(candidate types.FeatureSet, job types.JobSpec, raw float64, source types.ResultSource, ruleBased bool) types.MatchResult {
	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	strengths, gaps := narrate(candidate, job)
	if ruleBased && len(strengths) == 0 && len(gaps) == 0 {
		strengths = []string{"No stated requirements to evaluate against"}
	}

	return types.MatchResult{
		Score:          score,
		Strengths:      strengths,
		Gaps:           gaps,
		Recommendation: s.Recommend(score),
		Source:         source,
		ComputedAt:     time.Now().UTC(),
	}
}

// narrate derives the qualitative strengths and gaps deterministically
// from skill and experience coverage. Skill lists are already sorted, so
// the output order is stable.
func narrate(candidate types.FeatureSet, job types.JobSpec) (strengths, gaps []string) {
	for _, skill := range job.RequiredSkills {
		if candidate.HasSkill(skill) {
			strengths = append(strengths, fmt.Sprintf("Has required skill: %s", skill))
		} else {
			gaps = append(gaps, fmt.Sprintf("Missing required skill: %s", skill))
		}
	}
	for _, skill := range job.PreferredSkills {
		if candidate.HasSkill(skill) {
			strengths = append(strengths, fmt.Sprintf("Has preferred skill: %s", skill))
		}
	}

	if job.MinExperienceYears > 0 {
		if candidate.ExperienceYears >= job.MinExperienceYears {
			strengths = append(strengths, fmt.Sprintf("Meets experience requirement (%.1f of %.1f years)",
				candidate.ExperienceYears, job.MinExperienceYears))
		} else {
			gaps = append(gaps, fmt.Sprintf("Experience shortfall: %.1f of %.1f years required (%.1f short)",
				candidate.ExperienceYears, job.MinExperienceYears,
				job.MinExperienceYears-candidate.ExperienceYears))
		}
	}

	if len(strengths) == 0 && len(gaps) == 0 {
		strengths = append(strengths, "Meets all stated requirements")
	}
	return strengths, gaps
}
