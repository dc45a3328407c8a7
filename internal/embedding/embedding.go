package embedding

import (
	"fmt"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/embedding/provider"
	"ragchitchat/internal/embedding/tfidf"
)

// Config selects the embedding backend.
type Config struct {
	// Type is "tfidf", "ollama" or "openai".
	Type      string
	Model     string
	BaseURL   string
	APIKey    string
	BatchSize int
	// CacheSize enables the query cache when positive.
	CacheSize int
}

// New builds the configured embedder.
func New(cfg Config) (domain.Embedder, error) {
	var (
		e   domain.Embedder
		err error
	)
	switch cfg.Type {
	case "", "tfidf":
		e = tfidf.NewEmbedder()
	case provider.Ollama, provider.OpenAI:
		e, err = provider.New(provider.Config{
			Provider:  cfg.Type,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			BatchSize: cfg.BatchSize,
		})
	default:
		err = fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}
