package features

import (
	"math"
	"testing"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float32{0.5, -0.2, 0.8}
	sim, ok := Cosine(v, v)
	if !ok {
		t.Fatal("expected similarity to be available")
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Errorf("expected cosine 1 for identical vectors, got %v", sim)
	}
}

func TestCosineOppositeVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	sim, ok := Cosine(a, b)
	if !ok || math.Abs(sim+1) > 1e-9 {
		t.Errorf("expected cosine -1 for opposite vectors, got %v ok=%v", sim, ok)
	}
}

func TestCosineUnavailable(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"nil vectors", nil, nil},
		{"mismatched dimensions", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero vector", []float32{0, 0}, []float32{1, 1}},
	}
	for _, tc := range cases {
		if _, ok := Cosine(tc.a, tc.b); ok {
			t.Errorf("%s: expected similarity unavailable", tc.name)
		}
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"go", "sql"}, []string{"go", "sql"}, 1},
		{"disjoint", []string{"go"}, []string{"java"}, 0},
		{"half overlap", []string{"go", "sql", "aws"}, []string{"go", "sql", "gcp"}, 0.5},
		{"both empty", nil, nil, 0},
	}
	for _, tc := range cases {
		if got := Jaccard(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
