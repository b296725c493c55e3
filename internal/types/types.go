package types

import (
	"fmt"
	"strings"
	"time"
)

// FeatureSet is the normalized representation of a candidate's raw text.
// It is immutable once extracted; RawTextHash fingerprints the source text
// so downstream caches can tell whether a recomputation is needed.
type FeatureSet struct {
	Skills             []string  `json:"skills"` // lower-cased, deduplicated, sorted
	ExperienceYears    float64   `json:"experienceYears"`
	Embedding          []float32 `json:"embedding,omitempty"`
	AchievementSignals int       `json:"achievementSignals"`
	RawTextHash        string    `json:"rawTextHash"`

	// Contact identifiers supplied by the upstream feed, used for
	// exact-duplicate short-circuiting. Optional.
	Email string `json:"email,omitempty"`

	// ComputedAt records extraction time. Duplicate resolution treats the
	// oldest record as canonical when similarities tie.
	ComputedAt time.Time `json:"computedAt"`
}

// HasSkill reports whether the feature set contains the canonical skill name.
func (f FeatureSet) HasSkill(skill string) bool {
	for _, s := range f.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// HasEmbedding reports whether a usable (non-zero) embedding is present.
func (f FeatureSet) HasEmbedding() bool {
	for _, v := range f.Embedding {
		if v != 0 {
			return true
		}
	}
	return false
}

// JobSpec is the normalized representation of a job's requirements.
type JobSpec struct {
	Title              string    `json:"title,omitempty"`
	RequiredSkills     []string  `json:"requiredSkills"`
	PreferredSkills    []string  `json:"preferredSkills"`
	MinExperienceYears float64   `json:"minExperienceYears"`
	Embedding          []float32 `json:"embedding,omitempty"`
	RawTextHash        string    `json:"rawTextHash"`
}

// HasEmbedding reports whether a usable (non-zero) embedding is present.
func (j JobSpec) HasEmbedding() bool {
	for _, v := range j.Embedding {
		if v != 0 {
			return true
		}
	}
	return false
}

// JobInput is the structured form a caller may supply instead of free text.
type JobInput struct {
	Title              string   `json:"title"`
	RequiredSkills     []string `json:"required_skills"`
	PreferredSkills    []string `json:"preferred_skills"`
	ExperienceRequired float64  `json:"experience_required"`
}

// EmbeddingText renders the structured input as stable text so structured
// and free-text jobs share one embedding and hashing path.
func (j JobInput) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(j.Title)
	b.WriteString("\nrequired: ")
	b.WriteString(strings.Join(j.RequiredSkills, ", "))
	b.WriteString("\npreferred: ")
	b.WriteString(strings.Join(j.PreferredSkills, ", "))
	fmt.Fprintf(&b, "\nexperience: %.1f years", j.ExperienceRequired)
	return b.String()
}

// Recommendation buckets a match score. Thresholds are fixed per deployment
// so results stay comparable across a ranking run.
type Recommendation string

const (
	StronglyRecommend Recommendation = "strongly_recommend"
	Recommend         Recommendation = "recommend"
	Consider          Recommendation = "consider"
	NotRecommended    Recommendation = "not_recommended"
)

// ResultSource identifies which tier of the resolution pipeline produced a
// MatchResult.
type ResultSource string

const (
	SourceLocal     ResultSource = "local"
	SourceRemote    ResultSource = "remote"
	SourceRuleBased ResultSource = "rule_based"
)

// MatchResult is the outcome of scoring one candidate against one job.
type MatchResult struct {
	Score          int            `json:"score"` // always in [0,100]
	Strengths      []string       `json:"strengths"`
	Gaps           []string       `json:"gaps"`
	Recommendation Recommendation `json:"recommendation"`
	Source         ResultSource   `json:"source"`
	ComputedAt     time.Time      `json:"computedAt"`
}

// DuplicateCandidate flags a likely duplicate record in the pool.
type DuplicateCandidate struct {
	CandidateID   string   `json:"candidateId"`
	MatchedID     string   `json:"matchedId"`
	Similarity    float64  `json:"similarity"` // in [0,1]
	MatchedFields []string `json:"matchedFields"`
}

// RankedCandidate pairs a candidate id with its match result inside a
// ranking response.
type RankedCandidate struct {
	CandidateID string      `json:"candidateId"`
	Result      MatchResult `json:"result"`
}

// RankOutput is the result of a ranking run. Excluded lists the candidate
// ids that could not be scored even after the full fallback chain.
type RankOutput struct {
	Job      JobSpec           `json:"job"`
	Ranked   []RankedCandidate `json:"ranked"`
	Excluded []string          `json:"excluded,omitempty"`
}

// DuplicateReport is the result of a duplicate scan for one candidate.
type DuplicateReport struct {
	CandidateID string               `json:"candidateId"`
	Threshold   float64              `json:"threshold"`
	Duplicates  []DuplicateCandidate `json:"duplicates"`
}
