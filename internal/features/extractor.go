// Package features turns raw candidate and job text into comparable
// feature sets: canonical skill sets, experience years, achievement
// signals and semantic embeddings.
package features

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"talentrank/internal/cache"
	"talentrank/internal/errors"
	"talentrank/internal/types"
)

// experiencePattern matches "5 years", "3.5 yrs", "10+ years" style phrases.
var experiencePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)

// preferredMarkers split a job description into required and preferred
// sections. Skills mentioned after the first marker count as preferred.
var preferredMarkers = []string{
	"nice to have", "nice-to-have", "preferred", "bonus points", "a plus",
	"would be a plus", "desirable",
}

// Extractor converts raw text into FeatureSet/JobSpec values. Extraction
// never fails: malformed or empty input yields zero-valued fields, and an
// unavailable embedding provider leaves the embedding nil so downstream
// scoring degrades the semantic term instead of erroring.
type Extractor struct {
	vocab      atomic.Pointer[Vocabulary]
	embedder   EmbeddingProvider
	embeddings *cache.Cache[string, []float32]
	logger     *errors.Logger
}

// NewExtractor creates an extractor with the built-in vocabulary. The
// embedding cache may be nil to disable embedding reuse.
func NewExtractor(embedder EmbeddingProvider, embeddings *cache.Cache[string, []float32], logger *errors.Logger) *Extractor {
	e := &Extractor{
		embedder:   embedder,
		embeddings: embeddings,
		logger:     logger,
	}
	e.vocab.Store(DefaultVocabulary())
	return e
}

// SetVocabulary atomically replaces the vocabulary. Used by the hot-reload
// watcher; in-flight extractions keep the vocabulary they started with.
func (e *Extractor) SetVocabulary(v *Vocabulary) {
	if v != nil {
		e.vocab.Store(v)
	}
}

// Vocabulary returns the current vocabulary.
func (e *Extractor) Vocabulary() *Vocabulary {
	return e.vocab.Load()
}

// ExtractCandidate builds a FeatureSet from raw candidate text. The email
// is upstream metadata used for exact-duplicate short-circuiting and may
// be empty.
func (e *Extractor) ExtractCandidate(ctx context.Context, text, email string) types.FeatureSet {
	vocab := e.vocab.Load()
	lower := strings.ToLower(text)

	fs := types.FeatureSet{
		Skills:             extractSkills(vocab, lower),
		ExperienceYears:    extractExperienceYears(lower),
		AchievementSignals: countAchievements(vocab, lower),
		RawTextHash:        HashText(text),
		Email:              strings.ToLower(strings.TrimSpace(email)),
		ComputedAt:         time.Now().UTC(),
	}
	fs.Embedding = e.embed(ctx, text, fs.RawTextHash)
	return fs
}

// ExtractJob builds a JobSpec from free-text job description. Skills
// mentioned after a "preferred"/"nice to have" marker are treated as
// preferred; everything else is required.
func (e *Extractor) ExtractJob(ctx context.Context, text string) types.JobSpec {
	vocab := e.vocab.Load()
	lower := strings.ToLower(text)

	requiredPart, preferredPart := splitPreferred(lower)
	required := extractSkills(vocab, requiredPart)
	preferred := subtractSkills(extractSkills(vocab, preferredPart), required)

	spec := types.JobSpec{
		Title:              firstLine(text),
		RequiredSkills:     required,
		PreferredSkills:    preferred,
		MinExperienceYears: extractExperienceYears(lower),
		RawTextHash:        HashText(text),
	}
	spec.Embedding = e.embed(ctx, text, spec.RawTextHash)
	return spec
}

// JobFromInput normalizes a structured job input into a JobSpec. Skill
// names are folded through the vocabulary's synonym table; unknown skills
// are kept verbatim so niche requirements still participate in coverage.
func (e *Extractor) JobFromInput(ctx context.Context, input types.JobInput) types.JobSpec {
	vocab := e.vocab.Load()

	embeddingText := input.EmbeddingText()
	spec := types.JobSpec{
		Title:              input.Title,
		RequiredSkills:     canonicalize(vocab, input.RequiredSkills),
		PreferredSkills:    canonicalize(vocab, input.PreferredSkills),
		MinExperienceYears: input.ExperienceRequired,
		RawTextHash:        HashText(embeddingText),
	}
	spec.PreferredSkills = subtractSkills(spec.PreferredSkills, spec.RequiredSkills)
	spec.Embedding = e.embed(ctx, embeddingText, spec.RawTextHash)
	return spec
}

// embed resolves an embedding through the cache, absorbing provider
// failures as degraded extraction.
func (e *Extractor) embed(ctx context.Context, text, textHash string) []float32 {
	if e.embedder == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	if vec, ok := e.embeddings.Get(textHash); ok {
		return vec
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("Embedding unavailable, extraction degraded",
				"code", errors.ErrCodeExtractionDegr,
				"text_hash", textHash,
				"error", err)
		}
		return nil
	}

	e.embeddings.Put(textHash, vec)
	return vec
}

// extractSkills returns canonical skill names found in lower-cased text,
// sorted for determinism.
func extractSkills(vocab *Vocabulary, lower string) []string {
	found := make(map[string]struct{})

	for skill := range vocab.skills {
		if containsPhrase(lower, skill) {
			found[skill] = struct{}{}
		}
	}
	for variant, canonical := range vocab.synonyms {
		if _, ok := found[canonical]; ok {
			continue
		}
		if containsPhrase(lower, variant) {
			found[canonical] = struct{}{}
		}
	}

	skills := make([]string, 0, len(found))
	for skill := range found {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}

// canonicalize lower-cases, folds synonyms and deduplicates a skill list.
func canonicalize(vocab *Vocabulary, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		if name = strings.ToLower(strings.TrimSpace(name)); name == "" {
			continue
		}
		canonical, _ := vocab.Canonical(name)
		seen[canonical] = struct{}{}
	}

	skills := make([]string, 0, len(seen))
	for skill := range seen {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	return skills
}

func subtractSkills(from, remove []string) []string {
	removed := make(map[string]struct{}, len(remove))
	for _, skill := range remove {
		removed[skill] = struct{}{}
	}

	result := make([]string, 0, len(from))
	for _, skill := range from {
		if _, ok := removed[skill]; !ok {
			result = append(result, skill)
		}
	}
	return result
}

// extractExperienceYears returns the maximum "N years" figure mentioned,
// or 0 when none is found.
func extractExperienceYears(lower string) float64 {
	var maxYears float64
	for _, match := range experiencePattern.FindAllStringSubmatch(lower, -1) {
		years, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		// Figures above a working lifetime are almost always year ranges
		// ("2019 years" from mangled "2019 - 2023"), not experience.
		if years > 60 {
			continue
		}
		if years > maxYears {
			maxYears = years
		}
	}
	return maxYears
}

// countAchievements counts non-overlapping, word-bounded occurrences of
// the achievement keywords.
func countAchievements(vocab *Vocabulary, lower string) int {
	count := 0
	for _, keyword := range vocab.achievements {
		count += countPhrase(lower, keyword)
	}
	return count
}

func splitPreferred(lower string) (required, preferred string) {
	idx := -1
	for _, marker := range preferredMarkers {
		if i := strings.Index(lower, marker); i >= 0 && (idx == -1 || i < idx) {
			idx = i
		}
	}
	if idx == -1 {
		return lower, ""
	}
	return lower[:idx], lower[idx:]
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
// Boundaries are any non-alphanumeric rune, so punctuation-bearing skills
// like "c++" or "node.js" match without anchoring inside longer words.
func containsPhrase(text, phrase string) bool {
	return indexPhrase(text, phrase, 0) >= 0
}

// countPhrase counts non-overlapping boundary-anchored occurrences.
func countPhrase(text, phrase string) int {
	count, from := 0, 0
	for {
		idx := indexPhrase(text, phrase, from)
		if idx < 0 {
			return count
		}
		count++
		from = idx + len(phrase)
	}
}

func indexPhrase(text, phrase string, from int) int {
	if phrase == "" {
		return -1
	}
	for from <= len(text)-len(phrase) {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return -1
		}
		idx += from

		if boundedAt(text, idx, len(phrase)) {
			return idx
		}
		from = idx + 1
	}
	return -1
}

// boundedAt reports whether text[idx:idx+n] is flanked by non-alphanumeric
// runes or string edges.
func boundedAt(text string, idx, n int) bool {
	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}
	if end := idx + n; end < len(text) && isWordChar(text[end]) {
		// Allow a trailing word char only if the phrase itself ends in
		// punctuation ("c++" directly followed by text is still unusual,
		// so keep the strict boundary).
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
