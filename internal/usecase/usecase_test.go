package usecase

import (
	"context"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// failingIndex wraps a real index and starts failing inserts after a
// configured number of successes.
type failingIndex struct {
	port.VectorIndex

	mu        sync.Mutex
	succeed   int
	failErr   error
	attempted int
}

func (f *failingIndex) Insert(ctx context.Context, id string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempted++
	if f.attempted > f.succeed {
		return f.failErr
	}
	return f.VectorIndex.Insert(ctx, id, vector)
}

// scriptedGenerator returns canned responses and records every prompt
// it was asked to complete.
type scriptedGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return port.Generation{}, g.err
	}
	return port.Generation{Text: g.response, Model: g.ModelName()}, nil
}

func (g *scriptedGenerator) ModelName() string { return "scripted" }

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// fixedRetriever serves a fixed result set, bypassing embedding and
// index plumbing in synthesizer tests.
type fixedRetriever struct {
	chunks []domain.ScoredChunk
	err    error
}

func (r *fixedRetriever) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	if r.err != nil {
		return nil, r.err
	}
	if k > len(r.chunks) {
		k = len(r.chunks)
	}
	return r.chunks[:k], nil
}
