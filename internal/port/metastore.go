package port

import "docqa/internal/domain"

// MetadataStore persists document and chunk metadata keyed by the same
// ids used in the VectorIndex. It is a lookup layer, not a search engine.
type MetadataStore interface {
	PutDocument(doc domain.Document) error

	GetDocument(id string) (domain.Document, error)

	// GetDocumentBySource returns the document ingested from the given
	// source URI, or domain.ErrDocumentNotFound.
	GetDocumentBySource(sourceURI string) (domain.Document, error)

	ListDocuments() ([]domain.Document, error)

	// UpdateStatus transitions a document's lifecycle status. failReason
	// is stored only for StatusFailed.
	UpdateStatus(id string, status domain.DocumentStatus, failReason string) error

	DeleteDocument(id string) error

	PutChunks(chunks []domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	DeleteChunksByDoc(docID string) error

	Close() error
}
