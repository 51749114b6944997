package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusChunking  DocumentStatus = "chunking"
	StatusEmbedding DocumentStatus = "embedding"
	StatusIndexing  DocumentStatus = "indexing"
	StatusIndexed   DocumentStatus = "indexed"
	StatusFailed    DocumentStatus = "failed"
	StatusDeleted   DocumentStatus = "deleted"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s DocumentStatus) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed || s == StatusDeleted
}

type Document struct {
	ID          string
	SourceURI   string
	ContentType string
	Status      DocumentStatus
	FailReason  string
	IngestedAt  time.Time
	ChunkCount  int
}

// Chunk is a bounded contiguous span of a document's parsed text.
// Start and End are byte offsets into the parsed UTF-8 text; Overlap is
// the number of bytes shared with the previous chunk of the same document.
type Chunk struct {
	ID      string
	DocID   string
	Seq     int
	Text    string
	Start   int
	End     int
	Overlap int
}

// ChunkID derives the stable chunk identifier from its parent document
// and sequence number.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s:%d", docID, seq)
}

// ScoredChunk is one retrieval hit: a chunk with its similarity score.
// Scores are backend-native but comparable within a single query.
type ScoredChunk struct {
	ChunkID string
	DocID   string
	Score   float64
	Text    string
}

// AnswerRecord is a synthesized answer with citations back to the
// retrieved chunks it was grounded on.
type AnswerRecord struct {
	Question  string
	Answer    string
	Citations []string
	Generator string
	CacheKey  string
	Cached    bool
}
