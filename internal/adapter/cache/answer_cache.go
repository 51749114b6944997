// Package cache holds the answer cache: synthesized answers keyed by
// (normalized question, retrieved context, generator identity).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
)

type AnswerCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	record    domain.AnswerRecord
	docIDs    map[string]struct{}
	timestamp time.Time
}

func NewAnswerCache(maxSize int, ttl time.Duration) *AnswerCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnswerCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Key derives the cache key from the normalized question, the ordered
// set of context chunk ids and the generator identity. The same
// question against a changed context misses.
func Key(question string, chunkIDs []string, generator string) string {
	ids := make([]string, len(chunkIDs))
	copy(ids, chunkIDs)
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(normalizeQuestion(question)))
	h.Write([]byte{0})
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	h.Write([]byte(generator))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func (c *AnswerCache) Get(key string) (domain.AnswerRecord, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return domain.AnswerRecord{}, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return domain.AnswerRecord{}, false
	}

	c.mu.Lock()
	// The entry may have been invalidated between the read lock and
	// here; moveToEnd would resurrect the key in order with no entry.
	if _, live := c.entries[key]; live {
		c.moveToEnd(key)
	}
	c.mu.Unlock()

	return entry.record, true
}

// Put stores a record along with the documents its context came from,
// so InvalidateDoc can drop it when any of them changes.
func (c *AnswerCache) Put(key string, record domain.AnswerRecord, docIDs []string) {
	docs := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		docs[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{record: record, docIDs: docs, timestamp: time.Now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{record: record, docIDs: docs, timestamp: time.Now()}
	c.order = append(c.order, key)
}

// InvalidateDoc drops every cached answer whose context cited the given
// document. Called on document deletion and re-ingestion.
func (c *AnswerCache) InvalidateDoc(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if _, cited := entry.docIDs[docID]; cited {
			delete(c.entries, key)
			c.removeFromOrder(key)
		}
	}
}

func (c *AnswerCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AnswerCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *AnswerCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *AnswerCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
