package embedding

import (
	"context"
	"crypto/sha256"
)

// MockEmbedder produces deterministic vectors without a network call.
// Fixed vectors can be pinned per text; everything else hashes into a
// stable pseudo-embedding. Useful for tests and offline smoke runs.
type MockEmbedder struct {
	dimension int
	fixed     map[string][]float32
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{
		dimension: dimension,
		fixed:     make(map[string][]float32),
	}
}

// SetVector pins the vector returned for an exact text.
func (e *MockEmbedder) SetVector(text string, vector []float32) {
	e.fixed[text] = vector
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.fixed[t]; ok {
			out[i] = v
			continue
		}
		sum := sha256.Sum256([]byte(t))
		vec := make([]float32, e.dimension)
		for j := range vec {
			vec[j] = float32(sum[j%len(sum)]) / 255.0
		}
		out[i] = vec
	}
	return out, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
