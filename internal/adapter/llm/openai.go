// Package llm provides generation oracle adapters. Providers are
// hand-rolled HTTP clients over each vendor's completion API; a Chain
// composes them into a configured fallback order.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIGenerator calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// Options configures a single generation provider.
type Options struct {
	APIKeyEnv   string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIGenerator(opts Options) (*OpenAIGenerator, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &OpenAIGenerator{
		apiKey:      apiKey,
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	reqBody := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	body, err := postJSON(ctx, g.client, g.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + g.apiKey,
	}, reqBody)
	if err != nil {
		return port.Generation{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return port.Generation{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return port.Generation{}, fmt.Errorf("generation API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return port.Generation{}, fmt.Errorf("generation API returned no choices")
	}

	return port.Generation{Text: resp.Choices[0].Message.Content, Model: g.model}, nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

// postJSON issues a JSON POST and maps transport and 429/5xx failures to
// domain.ErrGenerationUnavailable so the retry layer can tell transient
// from permanent.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrGenerationUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGenerationUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		preview := body
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, preview)
	}

	return body, nil
}
