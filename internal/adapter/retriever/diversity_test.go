package retriever

import (
	"testing"

	"docqa/internal/domain"
)

func scored(docID string, seq int, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		ChunkID: domain.ChunkID(docID, seq),
		DocID:   docID,
		Score:   score,
	}
}

func TestDiversityCapsPerDocument(t *testing.T) {
	r := NewDiversityReranker(2)

	candidates := []domain.ScoredChunk{
		scored("a", 0, 0.9),
		scored("a", 1, 0.8),
		scored("a", 2, 0.7),
		scored("b", 0, 0.6),
		scored("b", 1, 0.5),
	}

	results := r.Rerank(candidates, 4)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	perDoc := make(map[string]int)
	for _, res := range results {
		perDoc[res.DocID]++
	}
	if perDoc["a"] > 2 {
		t.Errorf("document a contributed %d chunks, cap is 2", perDoc["a"])
	}
	// Order preserved: a:0, a:1, then b takes over.
	if results[0].ChunkID != "a:0" || results[2].ChunkID != "b:0" {
		t.Errorf("unexpected order: %v", results)
	}
}

func TestDiversityDisabled(t *testing.T) {
	r := NewDiversityReranker(0)

	candidates := []domain.ScoredChunk{
		scored("a", 0, 0.9),
		scored("a", 1, 0.8),
		scored("a", 2, 0.7),
	}

	results := r.Rerank(candidates, 3)
	if len(results) != 3 {
		t.Errorf("expected all 3 results with cap disabled, got %d", len(results))
	}
}

func TestDiversityTruncatesToK(t *testing.T) {
	r := NewDiversityReranker(0)

	candidates := []domain.ScoredChunk{
		scored("a", 0, 0.9),
		scored("b", 0, 0.8),
		scored("c", 0, 0.7),
	}

	results := r.Rerank(candidates, 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
