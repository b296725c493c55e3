package features

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText fingerprints source text. Identical text always hashes the same,
// which is what makes the embedding and result caches content-addressed.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ResultCacheKey derives the result-cache key for a candidate/job pair.
// Either hash changing invalidates the pair.
func ResultCacheKey(candidateHash, jobHash string) string {
	sum := sha256.Sum256([]byte(candidateHash + ":" + jobHash))
	return hex.EncodeToString(sum[:])
}
