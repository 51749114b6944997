package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/index"
	"docqa/internal/adapter/parser"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/port"
)

func newTestPipeline(t *testing.T, idx port.VectorIndex) (*IngestPipeline, *store.MemoryStore, *cache.AnswerCache) {
	t.Helper()

	ch, err := chunker.NewTextChunker(100, 10, "fixed")
	require.NoError(t, err)

	meta := store.NewMemoryStore()
	answerCache := cache.NewAnswerCache(16, 0)

	p := NewIngestPipeline(
		parser.NewRegistry(),
		ch,
		embedding.NewMockEmbedder(8),
		idx,
		meta,
		answerCache,
		IngestOptions{Workers: 2, BatchSize: 2},
		nil,
	)
	return p, meta, answerCache
}

func TestIngestHappyPath(t *testing.T) {
	p, meta, _ := newTestPipeline(t, index.NewFlat(8))

	text := strings.Repeat("All work and no play makes for dull documentation. ", 10)
	doc, err := p.Ingest(context.Background(), "docs/a.txt", []byte(text), "text/plain")
	require.NoError(t, err)
	require.Equal(t, domain.StatusIndexed, doc.Status)
	require.Greater(t, doc.ChunkCount, 1)

	stored, err := meta.GetDocument(doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusIndexed, stored.Status)

	chunks, err := meta.GetChunksByDoc(doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, doc.ChunkCount)
}

func TestIngestAllOrNothing(t *testing.T) {
	idx := &failingIndex{
		VectorIndex: index.NewFlat(8),
		succeed:     2,
		failErr:     fmt.Errorf("backend write refused: %w", domain.ErrBackendUnavailable),
	}
	p, meta, _ := newTestPipeline(t, idx)

	text := strings.Repeat("Partial documents must never become searchable. ", 20)
	doc, err := p.Ingest(context.Background(), "docs/partial.txt", []byte(text), "text/plain")
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	require.Equal(t, domain.StatusFailed, doc.Status)
	require.NotEmpty(t, doc.FailReason)

	// The two vectors that made it in before the failure are rolled back.
	count, err := idx.VectorIndex.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)

	chunks, err := meta.GetChunksByDoc(doc.ID)
	require.NoError(t, err)
	require.Empty(t, chunks)

	stored, err := meta.GetDocument(doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, stored.Status)
}

func TestIngestMalformedDocument(t *testing.T) {
	p, _, _ := newTestPipeline(t, index.NewFlat(8))

	_, err := p.Ingest(context.Background(), "docs/bad.txt", []byte{0xff, 0xfe, 0x01}, "text/plain")
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestReingestReplacesAndInvalidatesCache(t *testing.T) {
	idx := index.NewFlat(8)
	p, meta, answerCache := newTestPipeline(t, idx)

	first, err := p.Ingest(context.Background(), "docs/a.txt", []byte(strings.Repeat("old content here. ", 20)), "text/plain")
	require.NoError(t, err)

	key := cache.Key("q", []string{domain.ChunkID(first.ID, 0)}, "m")
	answerCache.Put(key, domain.AnswerRecord{Answer: "stale"}, []string{first.ID})

	second, err := p.Ingest(context.Background(), "docs/a.txt", []byte(strings.Repeat("new content here. ", 20)), "text/plain")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// Old document fully gone.
	_, err = meta.GetDocument(first.ID)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
	oldChunks, err := meta.GetChunksByDoc(first.ID)
	require.NoError(t, err)
	require.Empty(t, oldChunks)

	// Cached answers over the old document no longer served.
	_, hit := answerCache.Get(key)
	require.False(t, hit)

	// Index holds exactly the new document's vectors.
	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, second.ChunkCount, count)
}

func TestRemoveDeletesEverything(t *testing.T) {
	idx := index.NewFlat(8)
	p, meta, answerCache := newTestPipeline(t, idx)

	doc, err := p.Ingest(context.Background(), "docs/a.txt", []byte(strings.Repeat("content to remove. ", 20)), "text/plain")
	require.NoError(t, err)

	key := cache.Key("q", []string{domain.ChunkID(doc.ID, 0)}, "m")
	answerCache.Put(key, domain.AnswerRecord{Answer: "a"}, []string{doc.ID})

	require.NoError(t, p.Remove(context.Background(), doc.ID))

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, count)

	_, err = meta.GetDocument(doc.ID)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, hit := answerCache.Get(key)
	require.False(t, hit)
}

func TestRemoveUnknownDocument(t *testing.T) {
	p, _, _ := newTestPipeline(t, index.NewFlat(8))

	err := p.Remove(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestIngestCancelled(t *testing.T) {
	p, _, _ := newTestPipeline(t, index.NewFlat(8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ingest(ctx, "docs/a.txt", []byte(strings.Repeat("never makes it. ", 20)), "text/plain")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
