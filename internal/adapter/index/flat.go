// Package index provides VectorIndex adapters: an exact in-memory flat
// index, a bbolt-persisted embedded index, and a Qdrant client/server
// index. All report cosine similarity (higher is better) and break score
// ties by id ascending.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Flat is an exact brute-force cosine index held entirely in memory.
// Immediately consistent: Flush is a no-op.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
}

func NewFlat(dimension int) *Flat {
	return &Flat{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

func (f *Flat) Insert(ctx context.Context, id string, vector []float32) error {
	if len(vector) != f.dimension {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, f.dimension, len(vector))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[id] = vector
	return nil
}

func (f *Flat) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, id)
	return nil
}

func (f *Flat) Search(ctx context.Context, vector []float32, k int, filter *port.Filter) ([]port.SearchHit, error) {
	if len(vector) != f.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), f.dimension)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]port.SearchHit, 0, len(f.vectors))
	for id, v := range f.vectors {
		if !matchesFilter(id, filter) {
			continue
		}
		hits = append(hits, port.SearchHit{ID: id, Score: cosineSimilarity(vector, v)})
	}

	sortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *Flat) Count(ctx context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors), nil
}

func (f *Flat) Flush(ctx context.Context) error {
	return nil
}

func (f *Flat) Close() error {
	return nil
}

// sortHits orders by descending score, ties by id ascending so results
// are deterministic across runs.
func sortHits(hits []port.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// matchesFilter checks the chunk id's document prefix against the
// filter. Chunk ids are "<docID>:<seq>".
func matchesFilter(id string, filter *port.Filter) bool {
	if filter == nil || len(filter.DocIDs) == 0 {
		return true
	}
	docID := docIDOf(id)
	for _, d := range filter.DocIDs {
		if d == docID {
			return true
		}
	}
	return false
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
