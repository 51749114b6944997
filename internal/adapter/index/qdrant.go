package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Qdrant is a minimal REST client to a Qdrant server. Cosine distance;
// the collection is created on construction if missing.
//
// Consistency window: inserts and deletes are buffered locally and sent
// on Flush with wait=true, so a newly inserted vector is only guaranteed
// visible to Search after Flush returns.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	recallHint int
	client     *http.Client

	mu      sync.Mutex
	pending map[string][]float32 // buffered upserts, keyed by chunk id
	deletes map[string]struct{}  // buffered deletes
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	RecallHint int
	Timeout    time.Duration
}

func NewQdrant(ctx context.Context, cfg QdrantConfig) (*Qdrant, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	q := &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		recallHint: cfg.RecallHint,
		client:     &http.Client{Timeout: timeout},
		pending:    make(map[string][]float32),
		deletes:    make(map[string]struct{}),
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 for an existing collection with the same schema.
	return q.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body, nil)
}

func (q *Qdrant) Insert(ctx context.Context, id string, vector []float32) error {
	if len(vector) != q.dimension {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, q.dimension, len(vector))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[id] = vector
	delete(q.deletes, id)
	return nil
}

func (q *Qdrant) Delete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, id)
	q.deletes[id] = struct{}{}
	return nil
}

// Flush sends buffered upserts and deletes with wait=true. After it
// returns the server guarantees visibility to subsequent searches.
func (q *Qdrant) Flush(ctx context.Context) error {
	q.mu.Lock()
	pending := q.pending
	deletes := q.deletes
	q.pending = make(map[string][]float32)
	q.deletes = make(map[string]struct{})
	q.mu.Unlock()

	restore := func() {
		q.mu.Lock()
		for id, v := range pending {
			if _, overwritten := q.pending[id]; !overwritten {
				q.pending[id] = v
			}
		}
		for id := range deletes {
			q.deletes[id] = struct{}{}
		}
		q.mu.Unlock()
	}

	if len(deletes) > 0 {
		ids := make([]string, 0, len(deletes))
		for id := range deletes {
			ids = append(ids, id)
		}
		body := map[string]any{
			"filter": map[string]any{
				"must": []map[string]any{
					{"key": "chunk_id", "match": map[string]any{"any": ids}},
				},
			},
		}
		url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, q.collection)
		if err := q.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
			restore()
			return err
		}
	}

	if len(pending) > 0 {
		points := make([]map[string]any, 0, len(pending))
		for id, vec := range pending {
			points = append(points, map[string]any{
				"id":     pointID(id),
				"vector": vec,
				"payload": map[string]any{
					"chunk_id": id,
					"doc_id":   docIDOf(id),
				},
			})
		}
		body := map[string]any{"points": points}
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection)
		if err := q.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
			restore()
			return err
		}
	}

	return nil
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, k int, filter *port.Filter) ([]port.SearchHit, error) {
	if len(vector) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), q.dimension)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if q.recallHint > 0 {
		req["params"] = map[string]any{"hnsw_ef": q.recallHint}
	}
	if filter != nil && len(filter.DocIDs) > 0 {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "doc_id", "match": map[string]any{"any": filter.DocIDs}},
			},
		}
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection)
	if err := q.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]port.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload["chunk_id"].(string)
		if id == "" {
			continue
		}
		hits = append(hits, port.SearchHit{ID: id, Score: r.Score})
	}

	// The server orders by score; re-sort only to enforce the id
	// tie-break the contract promises.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	return hits, nil
}

func (q *Qdrant) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", q.url, q.collection)
	if err := q.doJSON(ctx, http.MethodPost, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *Qdrant) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Qdrant) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: qdrant %s %s: %s", domain.ErrBackendUnavailable, method, url, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// pointID maps a chunk id onto a stable UUID, since Qdrant point ids
// must be UUIDs or unsigned integers. The chunk id itself travels in
// the payload.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// docIDOf extracts the document id from a "<docID>:<seq>" chunk id.
func docIDOf(chunkID string) string {
	if i := strings.LastIndexByte(chunkID, ':'); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}
