package store

import (
	"fmt"
	"sort"
	"sync"

	"docqa/internal/domain"
)

// MemoryStore is an in-memory MetadataStore used in tests and for
// throwaway corpora.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]domain.Document
	chunks    map[string]domain.Chunk
	docChunks map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		docChunks: make(map[string][]string),
	}
}

func (s *MemoryStore) PutDocument(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *MemoryStore) GetDocumentBySource(sourceURI string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.SourceURI == sourceURI {
			return doc, nil
		}
	}
	return domain.Document{}, domain.ErrDocumentNotFound
}

func (s *MemoryStore) ListDocuments() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].IngestedAt.Before(docs[j].IngestedAt) })
	return docs, nil
}

func (s *MemoryStore) UpdateStatus(id string, status domain.DocumentStatus, failReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	if status == domain.StatusFailed {
		doc.FailReason = failReason
	} else {
		doc.FailReason = ""
	}
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) PutChunks(chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chunks {
		if _, exists := s.chunks[ch.ID]; !exists {
			s.docChunks[ch.DocID] = append(s.docChunks[ch.DocID], ch.ID)
		}
		s.chunks[ch.ID] = ch
	}
	if len(chunks) > 0 {
		if doc, ok := s.docs[chunks[0].DocID]; ok {
			doc.ChunkCount = len(s.docChunks[chunks[0].DocID])
			s.docs[doc.ID] = doc
		}
	}
	return nil
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, nil
}

func (s *MemoryStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.docChunks[docID]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if ch, ok := s.chunks[id]; ok {
			chunks = append(chunks, ch)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
	return chunks, nil
}

func (s *MemoryStore) DeleteChunksByDoc(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.docChunks[docID] {
		delete(s.chunks, id)
	}
	delete(s.docChunks, docID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
