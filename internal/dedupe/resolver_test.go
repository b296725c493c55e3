package dedupe

import (
	"testing"
	"time"

	"talentrank/internal/types"
)

func TestEmailMatchShortCircuits(t *testing.T) {
	r := NewResolver(0.85, nil)

	candidate := types.FeatureSet{
		Skills:    []string{"go", "kubernetes"},
		Email:     "sam@example.com",
		Embedding: []float32{1, 0},
	}
	// Completely divergent skills and embedding; email alone must force
	// similarity 1.0.
	pool := PoolOf([]PoolEntry{
		{ID: "existing-1", Features: types.FeatureSet{
			Skills:    []string{"cobol", "fortran"},
			Email:     "sam@example.com",
			Embedding: []float32{-1, 0},
		}},
	})

	dups := r.FindDuplicates("new-1", candidate, pool)
	if len(dups) != 1 {
		t.Fatalf("expected 1 duplicate, got %d", len(dups))
	}
	if dups[0].Similarity != 1.0 {
		t.Errorf("expected similarity 1.0 on email match, got %v", dups[0].Similarity)
	}
	if len(dups[0].MatchedFields) != 1 || dups[0].MatchedFields[0] != "email" {
		t.Errorf("expected matched fields [email], got %v", dups[0].MatchedFields)
	}
}

func TestBlendedSimilarityThreshold(t *testing.T) {
	r := NewResolver(0.85, nil)

	candidate := types.FeatureSet{
		Skills:    []string{"go", "kubernetes", "terraform", "aws"},
		Embedding: []float32{1, 0},
	}
	pool := PoolOf([]PoolEntry{
		// Identical skills, identical embedding: 0.5*1 + 0.5*1 = 1.0.
		{ID: "near", Features: types.FeatureSet{
			Skills:    []string{"go", "kubernetes", "terraform", "aws"},
			Embedding: []float32{1, 0},
		}},
		// Disjoint skills, orthogonal embedding: 0.5*0 + 0.5*0.5 = 0.25.
		{ID: "far", Features: types.FeatureSet{
			Skills:    []string{"java", "spring"},
			Embedding: []float32{0, 1},
		}},
	})

	dups := r.FindDuplicates("new-1", candidate, pool)
	if len(dups) != 1 || dups[0].MatchedID != "near" {
		t.Fatalf("expected only the near record above threshold, got %+v", dups)
	}
}

func TestMissingEmbeddingFallsBackToSkills(t *testing.T) {
	r := NewResolver(0.85, nil)

	candidate := types.FeatureSet{Skills: []string{"go", "sql", "aws"}}
	pool := PoolOf([]PoolEntry{
		{ID: "same-skills", Features: types.FeatureSet{Skills: []string{"go", "sql", "aws"}}},
	})

	dups := r.FindDuplicates("new-1", candidate, pool)
	if len(dups) != 1 {
		t.Fatalf("expected identical skill sets to flag without embeddings, got %d", len(dups))
	}
	if dups[0].Similarity != 1.0 {
		t.Errorf("expected Jaccard 1.0 carrying full weight, got %v", dups[0].Similarity)
	}
}

func TestSortOrderOldestWinsOnTie(t *testing.T) {
	r := NewResolver(0.85, nil)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	candidate := types.FeatureSet{Skills: []string{"go", "sql"}}
	// Both pool entries have identical similarity; the older record must
	// sort first as the canonical one.
	pool := PoolOf([]PoolEntry{
		{ID: "newer", Features: types.FeatureSet{Skills: []string{"go", "sql"}, ComputedAt: base.Add(time.Hour)}},
		{ID: "older", Features: types.FeatureSet{Skills: []string{"go", "sql"}, ComputedAt: base}},
	})

	dups := r.FindDuplicates("new-1", candidate, pool)
	if len(dups) != 2 {
		t.Fatalf("expected 2 duplicates, got %d", len(dups))
	}
	if dups[0].MatchedID != "older" || dups[1].MatchedID != "newer" {
		t.Errorf("expected oldest record first on similarity tie, got [%s, %s]",
			dups[0].MatchedID, dups[1].MatchedID)
	}
}

func TestSortDescendingBySimilarity(t *testing.T) {
	r := NewResolver(0.5, nil)

	candidate := types.FeatureSet{Skills: []string{"go", "sql", "aws", "docker"}}
	pool := PoolOf([]PoolEntry{
		{ID: "partial", Features: types.FeatureSet{Skills: []string{"go", "sql", "aws", "kafka"}}},
		{ID: "exact", Features: types.FeatureSet{Skills: []string{"go", "sql", "aws", "docker"}}},
	})

	dups := r.FindDuplicates("new-1", candidate, pool)
	if len(dups) != 2 {
		t.Fatalf("expected 2 duplicates, got %d", len(dups))
	}
	if dups[0].MatchedID != "exact" {
		t.Errorf("expected highest similarity first, got %s", dups[0].MatchedID)
	}
}

func TestCandidateExcludedFromOwnPool(t *testing.T) {
	r := NewResolver(0.5, nil)

	candidate := types.FeatureSet{Skills: []string{"go"}}
	pool := PoolOf([]PoolEntry{
		{ID: "self", Features: candidate},
	})

	if dups := r.FindDuplicates("self", candidate, pool); len(dups) != 0 {
		t.Errorf("expected a record not to match itself, got %+v", dups)
	}
}

func TestPoolIsRestartable(t *testing.T) {
	r := NewResolver(0.85, nil)

	candidate := types.FeatureSet{Skills: []string{"go", "sql"}}
	pool := PoolOf([]PoolEntry{
		{ID: "dup", Features: types.FeatureSet{Skills: []string{"go", "sql"}}},
	})

	first := r.FindDuplicates("new-1", candidate, pool)
	second := r.FindDuplicates("new-1", candidate, pool)
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected identical results on repeated scans, got %d and %d", len(first), len(second))
	}
}
