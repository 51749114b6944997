package domain

import "errors"

var (
	// ErrMalformedDocument indicates input that cannot be decoded or is
	// empty. Permanent: surfaced to the caller without retry.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrEmbeddingUnavailable indicates the embedding service is
	// unreachable or rate-limited. Transient: retried with backoff.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service is
	// unreachable or rate-limited. Transient: retried with backoff.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrBackendUnavailable indicates the vector backend is unreachable.
	// Retried at insert time, surfaced immediately at query time.
	ErrBackendUnavailable = errors.New("vector backend unavailable")

	// ErrEmptyIndex signals a query against an index with no entries.
	// Not a failure; callers decide the messaging.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrDimensionMismatch indicates vectors of the wrong dimension for
	// the index. Configuration error, fatal, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDocumentNotFound indicates a lookup for an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
)

// Transient reports whether err is a retryable upstream failure.
func Transient(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrGenerationUnavailable) ||
		errors.Is(err, ErrBackendUnavailable)
}
