package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ragpipe/internal/domain"
)

// Config holds all configuration for the RAG pipeline.
type Config struct {
	Split      SplitConfig      `yaml:"split"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SplitConfig holds document splitting configuration.
type SplitConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
}

// IngestConfig holds document ingestion configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model          string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv      string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// GenerationConfig holds the language model configuration.
type GenerationConfig struct {
	Provider       string  `yaml:"provider"` // "openai", "mock"
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// PromptConfig holds the grounded-answer prompt template. The template
// receives {{.Context}} and {{.Question}}; swapping it does not change
// how retrieval or generation behave.
type PromptConfig struct {
	Template string `yaml:"template"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultTemplate is the default grounded-answer prompt.
const DefaultTemplate = `You are a helpful assistant. Answer the question using ONLY the context below.
If the answer is not in the context, say that you do not have that information.
Do not invent facts that are not supported by the context.

Context:
{{.Context}}

Question: {{.Question}}

Answer:`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Split: SplitConfig{
			ChunkSize:    1500,
			ChunkOverlap: 250,
			Separators:   []string{"\n\n", "\n", " ", ""},
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/node_modules/**", "**/.git/**", "**/.ragpipe/**"},
			Workers:  4,
		},
		Retrieve: RetrieveConfig{
			TopK: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSeconds: 60,
			CacheSize:      256,
		},
		Generation: GenerationConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.7,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Prompt: PromptConfig{
			Template: DefaultTemplate,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration before any processing begins.
func (c *Config) Validate() error {
	if c.Split.ChunkSize <= 0 {
		return &domain.ConfigError{Field: "split.chunk_size", Reason: "must be positive"}
	}
	if c.Split.ChunkOverlap < 0 {
		return &domain.ConfigError{Field: "split.chunk_overlap", Reason: "must not be negative"}
	}
	if c.Split.ChunkOverlap >= c.Split.ChunkSize {
		return &domain.ConfigError{Field: "split.chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if c.Retrieve.TopK <= 0 {
		return &domain.ConfigError{Field: "retrieve.top_k", Reason: "must be positive"}
	}
	if c.Embedding.Dimension <= 0 {
		return &domain.ConfigError{Field: "embedding.dimension", Reason: "must be positive"}
	}
	if c.Ingest.Workers <= 0 {
		return &domain.ConfigError{Field: "ingest.workers", Reason: "must be positive"}
	}
	if c.Prompt.Template == "" {
		return &domain.ConfigError{Field: "prompt.template", Reason: "must not be empty"}
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragpipe.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragpipe.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragpipe", "config.yaml")
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

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".ragpipe", "index.db")
}

// EnsureDataDir ensures the .ragpipe directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".ragpipe"), 0755)
}
