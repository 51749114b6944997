package llm

import (
	"fmt"
	"log/slog"

	"docqa/config"
	"docqa/internal/port"
)

// NewFromConfig builds the configured provider fallback chain.
func NewFromConfig(cfg config.GenerationConfig, log *slog.Logger) (port.Generator, error) {
	providers := make([]port.Generator, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		opts := Options{
			APIKeyEnv:   pc.APIKeyEnv,
			Model:       pc.Model,
			BaseURL:     pc.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}

		var (
			g   port.Generator
			err error
		)
		switch pc.Provider {
		case "openai":
			g, err = NewOpenAIGenerator(opts)
		case "anthropic":
			g, err = NewAnthropicGenerator(opts)
		case "ollama":
			g, err = NewOllamaGenerator(opts)
		default:
			return nil, fmt.Errorf("unknown generation provider: %q", pc.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("configuring provider %s: %w", pc.Provider, err)
		}
		providers = append(providers, g)
	}

	return NewChain(providers, cfg.MaxRetries, log)
}
