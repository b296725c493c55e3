package features

import "math"

// Cosine returns the cosine similarity of two vectors in [-1,1]. The
// second return is false when either vector is missing, zero, or the
// dimensionalities disagree, so callers treat that as "similarity
// unavailable" rather than zero similarity.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard against float drift pushing past the mathematical range.
	return math.Max(-1, math.Min(1, sim)), true
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two skill sets, 0 when both are
// empty. Inputs are assumed deduplicated.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}

	intersection := 0
	for _, s := range b {
		if _, ok := set[s]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
