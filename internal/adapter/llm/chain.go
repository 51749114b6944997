package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docqa/internal/domain"
	"docqa/internal/oracle"
	"docqa/internal/port"
)

// Chain tries generation providers in configured order. Each provider
// gets its own bounded retry budget for transient failures before the
// chain moves on; permanent errors stop the chain.
type Chain struct {
	providers  []port.Generator
	maxRetries int
	log        *slog.Logger
}

func NewChain(providers []port.Generator, maxRetries int, log *slog.Logger) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("generation chain requires at least one provider")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Chain{providers: providers, maxRetries: maxRetries, log: log}, nil
}

func (c *Chain) Generate(ctx context.Context, prompt string) (port.Generation, error) {
	var lastErr error
	for _, p := range c.providers {
		var gen port.Generation
		err := oracle.Do(ctx, c.maxRetries, 500*time.Millisecond, func(ctx context.Context) error {
			var err error
			gen, err = p.Generate(ctx, prompt)
			return err
		})
		if err == nil {
			return gen, nil
		}
		if !errors.Is(err, domain.ErrGenerationUnavailable) {
			return port.Generation{}, err
		}
		c.log.Warn("generation provider unavailable, trying next",
			"model", p.ModelName(), "error", err)
		lastErr = err
	}
	return port.Generation{}, fmt.Errorf("all generation providers failed: %w", lastErr)
}

// ModelName reports the primary provider's model.
func (c *Chain) ModelName() string {
	return c.providers[0].ModelName()
}
