package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// StaticProvider is a deterministic, dependency-free Provider for tests and
// local development. Vectors are derived from a hash of the input text so
// that identical texts embed identically and different texts diverge.
type StaticProvider struct {
	// Dimensions is the embedding dimensionality. Default: 384.
	Dimensions int

	// Err, when set, is returned from every call. Used to simulate
	// provider failures.
	Err error
}

// NewStaticProvider creates a StaticProvider with the given dimensionality.
func NewStaticProvider(dimensions int) *StaticProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &StaticProvider{Dimensions: dimensions}
}

// EmbedQuery generates a deterministic embedding for a single query.
func (p *StaticProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if text == "" {
		return nil, ErrEmptyInput
	}
	return p.vector(text), nil
}

// EmbedDocuments generates deterministic embeddings for multiple texts.
func (p *StaticProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

// vector produces a unit-norm pseudo-embedding seeded by the text hash.
func (p *StaticProvider) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, p.Dimensions)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int64(seed>>32)) / float32(math.MaxInt32)
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}

var _ Provider = (*StaticProvider)(nil)
var _ Provider = (*Service)(nil)
