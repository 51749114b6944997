package embedding

import (
	"fmt"

	"docqa/config"
	"docqa/internal/port"
)

// NewFromConfig constructs the configured embedding provider.
func NewFromConfig(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := Options{
		APIKeyEnv:         cfg.APIKeyEnv,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimension:         cfg.Dimension,
		BatchSize:         cfg.BatchSize,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(opts)
	case "ollama":
		return NewOllamaEmbedder(opts)
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
