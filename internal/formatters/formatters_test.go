package formatters

import (
	"strings"
	"testing"

	"talentrank/internal/types"
)

func sampleRankOutput() types.RankOutput {
	return types.RankOutput{
		Job: types.JobSpec{Title: "Backend Engineer"},
		Ranked: []types.RankedCandidate{
			{
				CandidateID: "alice",
				Result: types.MatchResult{
					Score:          85,
					Strengths:      []string{"required skills covered"},
					Gaps:           []string{},
					Recommendation: types.StronglyRecommend,
					Source:         types.SourceLocal,
				},
			},
			{
				CandidateID: "bob",
				Result: types.MatchResult{
					Score:          42,
					Strengths:      []string{},
					Gaps:           []string{"missing python"},
					Recommendation: types.Consider,
					Source:         types.SourceRuleBased,
				},
			},
		},
		Excluded: []string{"carol"},
	}
}

func TestJSONFormatterFallback(t *testing.T) {
	registry := NewFormatterRegistry()

	// JSON handles every data type through the "any" fallback.
	out, err := registry.Format(sampleRankOutput(), "json")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, `"candidateId": "alice"`) {
		t.Errorf("expected candidate id in JSON output:\n%s", out)
	}
}

func TestRankTextFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleRankOutput(), "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "Backend Engineer") {
		t.Errorf("expected job title in output:\n%s", out)
	}
	if !strings.Contains(out, "1. alice") || !strings.Contains(out, "2. bob") {
		t.Errorf("expected numbered ranking in output:\n%s", out)
	}
	if !strings.Contains(out, "carol") {
		t.Errorf("expected excluded candidate in output:\n%s", out)
	}
}

func TestRankMarkdownFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleRankOutput(), "markdown")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "| 1 | alice | 85 |") {
		t.Errorf("expected ranking table row in output:\n%s", out)
	}
	if !strings.Contains(out, "## Excluded") {
		t.Errorf("expected excluded section in output:\n%s", out)
	}
}

func TestMatchFormatters(t *testing.T) {
	registry := NewFormatterRegistry()
	result := types.MatchResult{
		Score:          73,
		Strengths:      []string{"go", "kubernetes"},
		Gaps:           []string{"terraform"},
		Recommendation: types.Recommend,
		Source:         types.SourceLocal,
	}

	text, err := registry.Format(result, "text")
	if err != nil {
		t.Fatalf("text Format failed: %v", err)
	}
	if !strings.Contains(text, "Score: 73/100") {
		t.Errorf("expected score line in output:\n%s", text)
	}

	md, err := registry.Format(result, "markdown")
	if err != nil {
		t.Fatalf("markdown Format failed: %v", err)
	}
	if !strings.Contains(md, "**Score:** 73/100") {
		t.Errorf("expected score in markdown output:\n%s", md)
	}
}

func TestDuplicateFormatters(t *testing.T) {
	registry := NewFormatterRegistry()

	empty := types.DuplicateReport{CandidateID: "c1", Threshold: 0.85}
	out, err := registry.Format(empty, "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "No duplicates found") {
		t.Errorf("expected empty-report message:\n%s", out)
	}

	report := types.DuplicateReport{
		CandidateID: "c1",
		Threshold:   0.85,
		Duplicates: []types.DuplicateCandidate{
			{CandidateID: "c1", MatchedID: "c2", Similarity: 0.91, MatchedFields: []string{"skills", "embedding"}},
		},
	}
	out, err = registry.Format(report, "markdown")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "| c2 | 0.910 |") {
		t.Errorf("expected duplicate table row:\n%s", out)
	}
}

func TestFeatureSetFormatter(t *testing.T) {
	registry := NewFormatterRegistry()
	fs := types.FeatureSet{
		Skills:          []string{"go", "python"},
		ExperienceYears: 4.5,
		RawTextHash:     "abc123",
	}

	out, err := registry.Format(fs, "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(out, "Skills (2): go, python") {
		t.Errorf("expected skills line:\n%s", out)
	}
	if !strings.Contains(out, "Experience: 4.5 years") {
		t.Errorf("expected experience line:\n%s", out)
	}
}

func TestUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()
	if _, err := registry.Format(types.MatchResult{}, "yaml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
