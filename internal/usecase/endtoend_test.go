package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/index"
	"docqa/internal/adapter/parser"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
)

// Ingests a three-sentence document, asks a question whose embedding is
// pinned closest to the middle sentence, and checks the full path:
// retrieval top-1 and the answer's citation set both land on that chunk.
func TestEndToEndQuestionAnswering(t *testing.T) {
	ctx := context.Background()

	emb := embedding.NewMockEmbedder(3)
	idx := index.NewFlat(3)
	meta := store.NewMemoryStore()
	answerCache := cache.NewAnswerCache(16, 0)

	// Sentence splitting of "Alpha. Beta. Gamma." at size 7 produces
	// exactly these three chunk texts.
	emb.SetVector("Alpha.", []float32{1, 0, 0})
	emb.SetVector(" Beta.", []float32{0, 1, 0})
	emb.SetVector(" Gamma.", []float32{0, 0, 1})

	ch, err := chunker.NewTextChunker(7, 0, chunker.PolicySentence)
	require.NoError(t, err)

	pipeline := NewIngestPipeline(
		parser.NewRegistry(), ch, emb, idx, meta, answerCache,
		IngestOptions{Workers: 1, BatchSize: 10}, nil,
	)

	doc, err := pipeline.Ingest(ctx, "docs/greek.txt", []byte("Alpha. Beta. Gamma."), "text/plain")
	require.NoError(t, err)
	require.Equal(t, 3, doc.ChunkCount)

	retr := NewRetriever(emb, idx, meta, RetrieverOptions{MaxTopK: 10}, nil)

	emb.SetVector("what is beta?", []float32{0.1, 1, 0.1})
	results, err := retr.Retrieve(ctx, "what is beta?", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	betaID := domain.ChunkID(doc.ID, 1)
	require.Equal(t, betaID, results[0].ChunkID)
	require.Equal(t, " Beta.", results[0].Text)

	gen := &scriptedGenerator{response: "Beta is the second letter [S1]."}
	synth := NewSynthesizer(retr, gen, answerCache, 1, nil)

	record, err := synth.Answer(ctx, "what is beta?")
	require.NoError(t, err)
	require.Equal(t, []string{betaID}, record.Citations)
	require.Equal(t, "scripted", record.Generator)
}
