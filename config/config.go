package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document QA tool.
type Config struct {
	Ingest     IngestConfig     `yaml:"ingest"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IngestConfig holds ingestion and chunking configuration.
type IngestConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	Workers      int      `yaml:"workers"`
	ChunkSize    int      `yaml:"chunk_size"`    // max bytes per chunk
	ChunkOverlap int      `yaml:"chunk_overlap"` // bytes shared between consecutive chunks
	Splitter     string   `yaml:"splitter"`      // "sentence", "paragraph", "fixed"
}

// EmbeddingConfig holds embedding oracle configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "ollama", "mock"
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GenerationConfig holds generation oracle configuration. Providers are
// tried in order; the first that answers wins.
type GenerationConfig struct {
	Providers   []ProviderConfig `yaml:"providers"`
	MaxTokens   int              `yaml:"max_tokens"`
	Temperature float64          `yaml:"temperature"`
	MaxRetries  int              `yaml:"max_retries"`
}

// ProviderConfig identifies one generation provider.
type ProviderConfig struct {
	Provider  string `yaml:"provider"` // "openai", "anthropic", "ollama"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// IndexConfig selects and configures the vector backend.
type IndexConfig struct {
	Backend    string `yaml:"backend"` // "flat", "bolt", "qdrant"
	Path       string `yaml:"path"`    // bolt database file
	URL        string `yaml:"url"`     // qdrant base URL
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
	RecallHint int    `yaml:"recall_hint"` // approximate backends only
}

// RetrieveConfig holds retrieval and ranking configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
	MaxPerDocument int     `yaml:"max_per_document"` // 0 = no per-document cap
	MinScore       float64 `yaml:"min_score"`        // 0 = disabled
}

// CacheConfig holds answer cache configuration.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Includes:     []string{"**/*.txt", "**/*.md"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**"},
			Workers:      4,
			ChunkSize:    2000,
			ChunkOverlap: 200,
			Splitter:     "sentence",
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
		Generation: GenerationConfig{
			Providers: []ProviderConfig{
				{Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
			},
			MaxTokens:   1024,
			Temperature: 0,
			MaxRetries:  3,
		},
		Index: IndexConfig{
			Backend:    "bolt",
			Collection: "docqa",
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			MaxTopK:        50,
			MaxPerDocument: 3,
		},
		Cache: CacheConfig{
			MaxEntries: 256,
			TTL:        time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks settings that would otherwise fail deep inside the
// pipeline. Dimension and overlap errors are configuration errors and
// should stop startup.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	switch c.Ingest.Splitter {
	case "sentence", "paragraph", "fixed":
	default:
		return fmt.Errorf("unknown ingest.splitter: %q", c.Ingest.Splitter)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieve.MaxTopK <= 0 {
		return fmt.Errorf("retrieve.max_top_k must be positive, got %d", c.Retrieve.MaxTopK)
	}
	if len(c.Generation.Providers) == 0 {
		return fmt.Errorf("generation.providers must not be empty")
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the embedded vector index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".docqa", "vectors.db")
}

// MetaDBPath returns the path to the metadata database.
func MetaDBPath(dir string) string {
	return filepath.Join(dir, ".docqa", "metadata.db")
}

// EnsureDataDir ensures the .docqa directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docqa"), 0755)
}
