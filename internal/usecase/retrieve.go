package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/adapter/retriever"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// Retriever embeds a question and finds the most relevant chunks. It
// hydrates raw index hits with chunk text from the metadata store and
// applies the per-document diversity cap.
type Retriever struct {
	embedder port.Embedder
	index    port.VectorIndex
	meta     port.MetadataStore
	rerank   *retriever.DiversityReranker
	log      *slog.Logger

	maxTopK  int
	minScore float64
}

type RetrieverOptions struct {
	MaxTopK        int
	MaxPerDocument int
	MinScore       float64
}

func NewRetriever(
	embedder port.Embedder,
	index port.VectorIndex,
	meta port.MetadataStore,
	opts RetrieverOptions,
	log *slog.Logger,
) *Retriever {
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		meta:     meta,
		rerank:   retriever.NewDiversityReranker(opts.MaxPerDocument),
		log:      log,
		maxTopK:  opts.MaxTopK,
		minScore: opts.MinScore,
	}
}

// Retrieve returns up to k chunks ranked by similarity to the question.
// k above the configured ceiling is clamped, not rejected. An index
// with no entries yields domain.ErrEmptyIndex so callers can
// distinguish "nothing indexed" from "nothing relevant".
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if k > r.maxTopK {
		r.log.Debug("clamping k", "requested", k, "max", r.maxTopK)
		k = r.maxTopK
	}

	count, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting index entries: %w", err)
	}
	if count == 0 {
		return nil, domain.ErrEmptyIndex
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	// Overfetch when the diversity cap may discard candidates.
	fetchK := k
	if r.rerank.Enabled() {
		fetchK = k * 2
		if fetchK > r.maxTopK {
			fetchK = r.maxTopK
		}
		if fetchK < k {
			fetchK = k
		}
	}

	hits, err := r.index.Search(ctx, vectors[0], fetchK, nil)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	candidates := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if r.minScore > 0 && hit.Score < r.minScore {
			continue
		}
		chunk, err := r.meta.GetChunk(hit.ID)
		if err != nil {
			// The index can briefly know ids the store no longer holds.
			r.log.Warn("hit without metadata, skipping", "chunk", hit.ID)
			continue
		}
		candidates = append(candidates, domain.ScoredChunk{
			ChunkID: hit.ID,
			DocID:   chunk.DocID,
			Score:   hit.Score,
			Text:    chunk.Text,
		})
	}

	return r.rerank.Rerank(candidates, k), nil
}
