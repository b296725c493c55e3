package features

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"talentrank/internal/errors"

	"google.golang.org/genai"
)

// LocalEmbeddingDimensions is the vector size the deterministic local
// embedder produces. Kept modest because the vectors only feed cosine
// similarity, not a vector index.
const LocalEmbeddingDimensions = 256

// EmbeddingProvider turns text into a fixed-length semantic vector. The
// same text must always produce the same vector so embeddings can be
// cached by content hash.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder produces embeddings via the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger *errors.Logger
}

var _ EmbeddingProvider = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a Gemini-backed embedding provider.
func NewGeminiEmbedder(apiKey, model string, logger *errors.Logger) (*GeminiEmbedder, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Failed to create Gemini embedding client", err)
	}

	return &GeminiEmbedder{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Embed requests an embedding for text from the Gemini API.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Embedding request failed", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Embedding response contained no vector", nil)
	}

	if g.logger != nil {
		g.logger.Debug("Embedding computed",
			"model", g.model,
			"dimensions", len(result.Embeddings[0].Values))
	}
	return result.Embeddings[0].Values, nil
}

// LocalEmbedder is a deterministic, dependency-free embedding provider.
// It feature-hashes word bigrams into a fixed-length vector and
// L2-normalizes the result. Far weaker than a learned model, but stable,
// fast, and good enough for the local scoring tier and for tests.
type LocalEmbedder struct {
	dimensions int
}

var _ EmbeddingProvider = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a local embedder with the default dimensions.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dimensions: LocalEmbeddingDimensions}
}

// Embed never fails; empty text yields a zero vector.
func (l *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dimensions)

	tokens := tokenize(text)
	for i, token := range tokens {
		addFeature(vec, token, 1.0)
		if i+1 < len(tokens) {
			addFeature(vec, token+" "+tokens[i+1], 0.5)
		}
	}

	normalize(vec)
	return vec, nil
}

func addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(len(vec)))
	// The next hash bit picks the sign so collisions cancel rather than
	// accumulate (standard feature hashing).
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
