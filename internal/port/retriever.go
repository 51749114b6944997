package port

import (
	"context"

	"docqa/internal/domain"
)

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	// Retrieve embeds the question, searches the index and returns up to
	// k ranked chunks. Returns domain.ErrEmptyIndex when the index holds
	// no entries.
	Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error)
}
