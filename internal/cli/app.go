package cli

import (
	"context"
	"fmt"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/index"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/parser"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

// app holds the wired component graph for one command invocation.
type app struct {
	embedder port.Embedder
	index    port.VectorIndex
	meta     port.MetadataStore
	cache    *cache.AnswerCache

	pipeline  *usecase.IngestPipeline
	retriever *usecase.Retriever
}

// buildApp constructs the adapters and use cases from config. The
// generator chain is built lazily by commands that need it, so ingest
// works without generation credentials.
func buildApp(ctx context.Context) (*app, error) {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	embedder, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("configuring embedder: %w", err)
	}

	idxCfg := cfg.Index
	if idxCfg.Backend == "bolt" && idxCfg.Path == "" {
		idxCfg.Path = config.IndexDBPath(rootDir)
	}
	idx, err := index.NewFromConfig(ctx, idxCfg, embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	meta, err := store.NewSQLiteStore(config.MetaDBPath(rootDir))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	ch, err := chunker.NewTextChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, cfg.Ingest.Splitter)
	if err != nil {
		idx.Close()
		meta.Close()
		return nil, err
	}

	answerCache := cache.NewAnswerCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	pipeline := usecase.NewIngestPipeline(
		parser.NewRegistry(),
		ch,
		embedder,
		idx,
		meta,
		answerCache,
		usecase.IngestOptions{
			Workers:   cfg.Ingest.Workers,
			BatchSize: cfg.Embedding.BatchSize,
		},
		log,
	)

	retriever := usecase.NewRetriever(embedder, idx, meta, usecase.RetrieverOptions{
		MaxTopK:        cfg.Retrieve.MaxTopK,
		MaxPerDocument: cfg.Retrieve.MaxPerDocument,
		MinScore:       cfg.Retrieve.MinScore,
	}, log)

	return &app{
		embedder:  embedder,
		index:     idx,
		meta:      meta,
		cache:     answerCache,
		pipeline:  pipeline,
		retriever: retriever,
	}, nil
}

func (a *app) synthesizer() (*usecase.Synthesizer, error) {
	gen, err := llm.NewFromConfig(cfg.Generation, log)
	if err != nil {
		return nil, fmt.Errorf("configuring generator: %w", err)
	}
	return usecase.NewSynthesizer(a.retriever, gen, a.cache, cfg.Retrieve.TopK, log), nil
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		log.Error("closing index", "error", err)
	}
	if err := a.meta.Close(); err != nil {
		log.Error("closing metadata store", "error", err)
	}
}
