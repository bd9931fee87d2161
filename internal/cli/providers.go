package cli

import (
	"fmt"
	"time"

	"ragpipe/config"
	"ragpipe/internal/adapter/cache"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/llm"
	"ragpipe/internal/adapter/memindex"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/port"
)

// newEmbedder builds the configured embedding provider, wrapped in an
// LRU cache when cache_size is set.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	timeout := time.Duration(ec.TimeoutSeconds) * time.Second

	var embedder port.Embedder
	var err error
	switch ec.Provider {
	case "openai":
		if ec.BaseURL != "" {
			embedder, err = embedding.NewCompatibleEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.Dimension, ec.BatchSize, timeout)
		} else {
			embedder, err = embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, ec.BatchSize, timeout)
		}
	case "ollama":
		embedder, err = embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL, ec.Dimension, ec.BatchSize, timeout)
	case "mock":
		embedder = embedding.NewMockEmbedder(ec.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
	if err != nil {
		return nil, err
	}

	if ec.CacheSize > 0 {
		embedder = cache.NewCachedEmbedder(embedder, cache.NewEmbedCache(ec.CacheSize, 30*time.Minute))
	}

	return embedder, nil
}

// newGenerator builds the configured language model provider.
func newGenerator(cfg *config.Config) (port.Generator, error) {
	gc := cfg.Generation
	timeout := time.Duration(gc.TimeoutSeconds) * time.Second

	switch gc.Provider {
	case "openai":
		return llm.NewOpenAIGenerator(gc.APIKeyEnv, gc.Model, gc.BaseURL, timeout)
	case "mock":
		return llm.NewMockGenerator("(mock answer)"), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", gc.Provider)
	}
}

func generateOptions(cfg *config.Config) port.GenerateOptions {
	return port.GenerateOptions{
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	}
}

// openIndex loads the persisted snapshot into a fresh in-memory index.
// The returned store must be closed by the caller.
func openIndex(dir string) (*memindex.Index, *store.SnapshotStore, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(config.IndexDBPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	records, dimension, err := st.Load()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to load index: %w", err)
	}

	ix := memindex.New()
	if len(records) > 0 {
		if err := ix.Restore(records, dimension); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("failed to restore index: %w", err)
		}
	}

	return ix, st, nil
}

// saveIndex writes the index contents back to the snapshot store.
func saveIndex(ix *memindex.Index, st *store.SnapshotStore) error {
	return st.Save(ix.Records(), ix.Stats().Dimension)
}
