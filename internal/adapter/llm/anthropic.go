package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"docqa/internal/port"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicGenerator calls the Anthropic /v1/messages endpoint.
type AnthropicGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicGenerator(opts Options) (*AnthropicGenerator, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAnthropicBaseURL
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &AnthropicGenerator{
		apiKey:      apiKey,
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	reqBody := messagesRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	body, err := postJSON(ctx, g.client, g.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": anthropicVersion,
	}, reqBody)
	if err != nil {
		return port.Generation{}, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return port.Generation{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return port.Generation{}, fmt.Errorf("generation API error: %s", resp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return port.Generation{}, fmt.Errorf("generation API returned no text content")
	}

	return port.Generation{Text: sb.String(), Model: g.model}, nil
}

func (g *AnthropicGenerator) ModelName() string {
	return g.model
}
