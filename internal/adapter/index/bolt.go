package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var bucketVectors = []byte("vectors")

// Bolt is a bbolt-persisted index with an in-memory copy for search.
// Brute-force cosine; writes go to the database inside Insert/Delete and
// Flush forces an fsync, so a flushed insert survives a crash.
type Bolt struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string][]float32
}

type storedVector struct {
	Vector []float32 `json:"v"`
}

func NewBolt(path string, dimension int) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening bolt db: %v", domain.ErrBackendUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	b := &Bolt{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
	if err := b.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return b, nil
}

func (b *Bolt) loadVectors() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketVectors)
		return bucket.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			if len(stored.Vector) != b.dimension {
				return fmt.Errorf("%w: stored vector %s has %d, index configured for %d",
					domain.ErrDimensionMismatch, k, len(stored.Vector), b.dimension)
			}
			b.vectors[string(k)] = stored.Vector
			return nil
		})
	})
}

func (b *Bolt) Insert(ctx context.Context, id string, vector []float32) error {
	if len(vector) != b.dimension {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, b.dimension, len(vector))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(storedVector{Vector: vector})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketVectors).Put([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	b.vectors[id] = vector
	return nil
}

func (b *Bolt) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	delete(b.vectors, id)
	return nil
}

func (b *Bolt) Search(ctx context.Context, vector []float32, k int, filter *port.Filter) ([]port.SearchHit, error) {
	if len(vector) != b.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), b.dimension)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	hits := make([]port.SearchHit, 0, len(b.vectors))
	for id, v := range b.vectors {
		if !matchesFilter(id, filter) {
			continue
		}
		hits = append(hits, port.SearchHit{ID: id, Score: cosineSimilarity(vector, v)})
	}

	sortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (b *Bolt) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vectors), nil
}

// Flush syncs the database file. Inserts are written per-call already;
// this pins the durability boundary the ingestion pipeline relies on.
func (b *Bolt) Flush(ctx context.Context) error {
	if err := b.db.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", domain.ErrBackendUnavailable, err)
	}
	return nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
