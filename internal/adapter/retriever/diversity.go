// Package retriever holds ranking policy applied on top of raw vector
// search results.
package retriever

import "docqa/internal/domain"

// DiversityReranker caps how many chunks a single document may
// contribute, so one long document cannot dominate the context window.
type DiversityReranker struct {
	maxPerDoc int
}

// NewDiversityReranker creates a reranker. maxPerDoc <= 0 disables the
// cap.
func NewDiversityReranker(maxPerDoc int) *DiversityReranker {
	return &DiversityReranker{maxPerDoc: maxPerDoc}
}

// Enabled reports whether the cap is active.
func (r *DiversityReranker) Enabled() bool {
	return r.maxPerDoc > 0
}

// Rerank walks candidates in score order, skipping chunks of documents
// that already hit the cap, and returns at most k results. Relative
// order of kept candidates is preserved.
func (r *DiversityReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	perDoc := make(map[string]int)
	selected := make([]domain.ScoredChunk, 0, k)

	for _, c := range candidates {
		if r.maxPerDoc > 0 && perDoc[c.DocID] >= r.maxPerDoc {
			continue
		}
		selected = append(selected, c)
		perDoc[c.DocID]++
		if len(selected) == k {
			break
		}
	}

	return selected
}
