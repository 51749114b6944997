package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"docqa/internal/domain"
	"docqa/internal/oracle"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Requests are batched, rate-limited and retried with backoff on
// transient failures.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	batchSize  int
	maxRetries int
	client     *http.Client
	limiter    *rate.Limiter
}

// Options configures an OpenAI-compatible embedder.
type Options struct {
	APIKeyEnv         string
	Model             string
	BaseURL           string
	Dimension         int
	BatchSize         int
	MaxRetries        int
	RequestsPerSecond float64
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}
	return newEmbedder(apiKey, opts)
}

// NewOllamaEmbedder talks to a local Ollama server through its
// OpenAI-compatible endpoint. No API key is required.
func NewOllamaEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434/v1"
	}
	return newEmbedder("ollama", opts)
}

func newEmbedder(apiKey string, opts Options) (*OpenAIEmbedder, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("%w: embedder dimension must be positive", domain.ErrDimensionMismatch)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      opts.Model,
		baseURL:    opts.BaseURL,
		dimension:  opts.Dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		client:     &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var batch [][]float32
		err := oracle.Do(ctx, e.maxRetries, 500*time.Millisecond, func(ctx context.Context) error {
			var err error
			batch, err = e.embedBatch(ctx, texts[i:end])
			return err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	jsonData, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrEmbeddingUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrEmbeddingUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", truncate(body, 200), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embedding API error: %s", embResp.Error.Message)
	}

	out := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(out) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: model returned %d, configured %d",
				domain.ErrDimensionMismatch, len(data.Embedding), e.dimension)
		}
		out[data.Index] = data.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding API returned no vector for input %d", i)
		}
	}

	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
