package index

import (
	"context"
	"fmt"
	"os"

	"docqa/config"
	"docqa/internal/port"
)

// NewFromConfig constructs the configured vector backend. Backend
// selection happens once here, never per call.
func NewFromConfig(ctx context.Context, cfg config.IndexConfig, dimension int) (port.VectorIndex, error) {
	switch cfg.Backend {
	case "flat":
		return NewFlat(dimension), nil
	case "bolt":
		if cfg.Path == "" {
			return nil, fmt.Errorf("index.path is required for the bolt backend")
		}
		return NewBolt(cfg.Path, dimension)
	case "qdrant":
		if cfg.URL == "" {
			return nil, fmt.Errorf("index.url is required for the qdrant backend")
		}
		return NewQdrant(ctx, QdrantConfig{
			URL:        cfg.URL,
			APIKey:     os.Getenv(cfg.APIKeyEnv),
			Collection: cfg.Collection,
			Dimension:  dimension,
			RecallHint: cfg.RecallHint,
		})
	default:
		return nil, fmt.Errorf("unknown index backend: %q", cfg.Backend)
	}
}
