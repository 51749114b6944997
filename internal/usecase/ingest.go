package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/fs"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// IngestPipeline drives a document through
// chunking -> embedding -> indexing and owns its lifecycle. Transition
// to indexed is committed only after the index durability boundary
// succeeds for every chunk; any mid-pipeline failure rolls back so the
// index never holds a partial document.
type IngestPipeline struct {
	parser   port.Parser
	chunker  port.Chunker
	embedder port.Embedder
	index    port.VectorIndex
	meta     port.MetadataStore
	cache    *cache.AnswerCache
	log      *slog.Logger

	workers   int
	batchSize int

	// Per-source locks: unrelated documents ingest concurrently, while
	// two ingests of the same source serialize.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type IngestOptions struct {
	Workers   int
	BatchSize int
}

func NewIngestPipeline(
	parser port.Parser,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	meta port.MetadataStore,
	answerCache *cache.AnswerCache,
	opts IngestOptions,
	log *slog.Logger,
) *IngestPipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &IngestPipeline{
		parser:    parser,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		meta:      meta,
		cache:     answerCache,
		log:       log,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Ingest runs the full pipeline for one document. Re-ingesting a source
// URI replaces the previous document and invalidates cached answers
// that cited it.
func (p *IngestPipeline) Ingest(ctx context.Context, sourceURI string, raw []byte, contentType string) (domain.Document, error) {
	lock := p.sourceLock(sourceURI)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := p.meta.GetDocumentBySource(sourceURI); err == nil {
		p.log.Info("replacing previously ingested document", "source", sourceURI, "doc", existing.ID)
		if err := p.remove(ctx, existing); err != nil {
			return domain.Document{}, fmt.Errorf("replacing %s: %w", sourceURI, err)
		}
	}

	doc := domain.Document{
		ID:          uuid.NewString(),
		SourceURI:   sourceURI,
		ContentType: contentType,
		Status:      domain.StatusPending,
		IngestedAt:  time.Now(),
	}
	if err := p.meta.PutDocument(doc); err != nil {
		return domain.Document{}, fmt.Errorf("registering document: %w", err)
	}

	chunks, err := p.run(ctx, &doc, raw)
	if err != nil {
		return doc, err
	}

	doc.Status = domain.StatusIndexed
	doc.ChunkCount = len(chunks)
	p.log.Info("document indexed", "doc", doc.ID, "source", sourceURI, "chunks", len(chunks))
	return doc, nil
}

// run advances the state machine. On any error it rolls back inserted
// vectors and chunk metadata, flips the document to failed, and returns
// the original error.
func (p *IngestPipeline) run(ctx context.Context, doc *domain.Document, raw []byte) ([]domain.Chunk, error) {
	if err := p.transition(doc, domain.StatusChunking); err != nil {
		return nil, err
	}
	text, err := p.parser.Parse(raw, doc.ContentType)
	if err != nil {
		return nil, p.fail(doc, "chunking", err)
	}
	chunks, err := p.chunker.Chunk(*doc, text)
	if err != nil {
		return nil, p.fail(doc, "chunking", err)
	}

	if err := p.transition(doc, domain.StatusEmbedding); err != nil {
		return nil, err
	}
	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, p.fail(doc, "embedding", err)
	}

	if err := p.transition(doc, domain.StatusIndexing); err != nil {
		return nil, err
	}

	// Inserts for one document are serialized here; the all-or-nothing
	// guarantee depends on knowing exactly what to roll back.
	inserted := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			p.rollback(ctx, doc.ID, inserted)
			return nil, p.fail(doc, "indexing", err)
		}
		if err := p.index.Insert(ctx, ch.ID, vectors[i]); err != nil {
			p.rollback(ctx, doc.ID, inserted)
			return nil, p.fail(doc, "indexing", err)
		}
		inserted = append(inserted, ch.ID)
	}

	if err := p.index.Flush(ctx); err != nil {
		p.rollback(ctx, doc.ID, inserted)
		return nil, p.fail(doc, "indexing", err)
	}

	if err := p.meta.PutChunks(chunks); err != nil {
		p.rollback(ctx, doc.ID, inserted)
		return nil, p.fail(doc, "indexing", err)
	}

	if err := p.meta.UpdateStatus(doc.ID, domain.StatusIndexed, ""); err != nil {
		return nil, err
	}
	return chunks, nil
}

// embedChunks embeds chunk texts in parallel batches. Embedding is
// stateless, so batches of one document may run concurrently.
func (p *IngestPipeline) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for start := 0; start < len(chunks); start += p.batchSize {
		start := start
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g.Go(func() error {
			texts := make([]string, end-start)
			for i, ch := range chunks[start:end] {
				texts[i] = ch.Text
			}
			batch, err := p.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Remove deletes a document: vectors first, then chunk metadata, then
// the record itself. Cached answers citing it are invalidated.
func (p *IngestPipeline) Remove(ctx context.Context, docID string) error {
	doc, err := p.meta.GetDocument(docID)
	if err != nil {
		return err
	}

	lock := p.sourceLock(doc.SourceURI)
	lock.Lock()
	defer lock.Unlock()

	return p.remove(ctx, doc)
}

func (p *IngestPipeline) remove(ctx context.Context, doc domain.Document) error {
	chunks, err := p.meta.GetChunksByDoc(doc.ID)
	if err != nil {
		return fmt.Errorf("listing chunks of %s: %w", doc.ID, err)
	}

	for _, ch := range chunks {
		if err := p.index.Delete(ctx, ch.ID); err != nil {
			return fmt.Errorf("deleting vector %s: %w", ch.ID, err)
		}
	}
	if err := p.index.Flush(ctx); err != nil {
		return fmt.Errorf("flushing deletes of %s: %w", doc.ID, err)
	}

	if err := p.meta.DeleteChunksByDoc(doc.ID); err != nil {
		return err
	}
	if err := p.meta.UpdateStatus(doc.ID, domain.StatusDeleted, ""); err != nil {
		return err
	}
	if err := p.meta.DeleteDocument(doc.ID); err != nil {
		return err
	}

	if p.cache != nil {
		p.cache.InvalidateDoc(doc.ID)
	}
	p.log.Info("document removed", "doc", doc.ID, "source", doc.SourceURI)
	return nil
}

// FileResult reports the outcome of one file during a directory ingest.
type FileResult struct {
	Path string
	Doc  domain.Document
	Err  error
}

// IngestDir walks root with the given include/exclude globs and ingests
// every matching file through a bounded worker pool. onDone, if set, is
// called after each file (from worker goroutines).
func (p *IngestPipeline) IngestDir(ctx context.Context, root string, includes, excludes []string, onDone func(FileResult)) ([]FileResult, error) {
	walker := fs.NewWalker(includes, excludes)
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res := FileResult{Path: f}
			raw, err := os.ReadFile(f)
			if err != nil {
				res.Err = err
			} else {
				res.Doc, res.Err = p.Ingest(gctx, f, raw, fs.ContentType(f))
			}
			results[i] = res
			if onDone != nil {
				onDone(res)
			}
			// Per-file failures are reported, not fatal to the batch.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *IngestPipeline) transition(doc *domain.Document, status domain.DocumentStatus) error {
	if err := p.meta.UpdateStatus(doc.ID, status, ""); err != nil {
		return fmt.Errorf("transition %s -> %s: %w", doc.Status, status, err)
	}
	doc.Status = status
	return nil
}

// fail flips the document to the terminal failed state, recording the
// stage for precise caller-facing messages.
func (p *IngestPipeline) fail(doc *domain.Document, stage string, cause error) error {
	reason := fmt.Sprintf("%s: %v", stage, cause)
	if err := p.meta.UpdateStatus(doc.ID, domain.StatusFailed, reason); err != nil {
		p.log.Error("failed to record failure", "doc", doc.ID, "error", err)
	}
	doc.Status = domain.StatusFailed
	doc.FailReason = reason
	p.log.Warn("ingestion failed", "doc", doc.ID, "stage", stage, "error", cause)
	return fmt.Errorf("document %s failed at %s: %w", doc.ID, stage, cause)
}

// rollback removes already inserted vectors and any chunk metadata so a
// failed document leaves nothing queryable behind.
func (p *IngestPipeline) rollback(ctx context.Context, docID string, inserted []string) {
	// Use a fresh context: rollback must run even when the original
	// context was cancelled.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, id := range inserted {
		if err := p.index.Delete(rctx, id); err != nil {
			p.log.Error("rollback: failed to delete vector", "chunk", id, "error", err)
		}
	}
	if len(inserted) > 0 {
		if err := p.index.Flush(rctx); err != nil {
			p.log.Error("rollback: flush failed", "doc", docID, "error", err)
		}
	}
	if err := p.meta.DeleteChunksByDoc(docID); err != nil {
		p.log.Error("rollback: failed to delete chunk metadata", "doc", docID, "error", err)
	}
}

func (p *IngestPipeline) sourceLock(sourceURI string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[sourceURI]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[sourceURI] = lock
	}
	return lock
}
