package port

import "context"

// VectorIndex is the backend-agnostic contract for storing and
// similarity-searching embeddings. All vectors in one index share the
// same dimension and embedder identity.
type VectorIndex interface {
	// Insert adds or replaces the vector stored under id.
	Insert(ctx context.Context, id string, vector []float32) error

	// Delete removes the vector stored under id. Absent ids are a no-op.
	Delete(ctx context.Context, id string) error

	// Search returns up to k hits ordered by descending similarity.
	// Ties break by id ascending. filter may be nil.
	Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]SearchHit, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Flush is the durability boundary: after it returns, every prior
	// insert and delete is guaranteed visible to subsequent searches.
	Flush(ctx context.Context) error

	Close() error
}

// Filter restricts a search to chunks of the given documents.
type Filter struct {
	DocIDs []string
}

// SearchHit is a single similarity match.
type SearchHit struct {
	ID    string
	Score float64
}
