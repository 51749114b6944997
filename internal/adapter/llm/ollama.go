package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docqa/internal/port"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaGenerator calls a local Ollama server's /api/generate endpoint.
type OllamaGenerator struct {
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func NewOllamaGenerator(opts Options) (*OllamaGenerator, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: 300 * time.Second},
	}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	reqBody := ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": g.temperature,
		},
	}

	body, err := postJSON(ctx, g.client, g.baseURL+"/api/generate", nil, reqBody)
	if err != nil {
		return port.Generation{}, err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return port.Generation{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return port.Generation{}, fmt.Errorf("generation API error: %s", resp.Error)
	}

	return port.Generation{Text: resp.Response, Model: g.model}, nil
}

func (g *OllamaGenerator) ModelName() string {
	return g.model
}
