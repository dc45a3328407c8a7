// Package provider adapts langchaingo embedders to domain.Embedder.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	Ollama = "ollama"
	OpenAI = "openai"
)

type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	BatchSize int
}

// Embedder wraps a langchaingo embedder implementation.
type Embedder struct {
	name string
	impl embeddings.Embedder
}

func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedder model is required")
	}
	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case Ollama:
		ollamaOpts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			ollamaOpts = append(ollamaOpts, ollama.WithServerURL(cfg.BaseURL))
		}
		client, err = ollama.New(ollamaOpts...)
	case OpenAI:
		openaiOpts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
		if cfg.APIKey != "" {
			openaiOpts = append(openaiOpts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err = openai.New(openaiOpts...)
	default:
		return nil, fmt.Errorf("embedding provider %q is not supported", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}
	impl, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s embedder: %w", cfg.Provider, err)
	}
	return Wrap(cfg.Provider+":"+cfg.Model, impl), nil
}

// Wrap adapts an existing langchaingo embedder.
func Wrap(name string, impl embeddings.Embedder) *Embedder {
	return &Embedder{name: name, impl: impl}
}

func (e *Embedder) Name() string { return e.name }

// Prepare is a no-op; remote models need no corpus statistics.
func (e *Embedder) Prepare(context.Context, []string) error { return nil }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedder %s: %w", e.name, err)
	}
	return v, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	v, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedder %s: %w", e.name, err)
	}
	if len(v) != len(texts) {
		return nil, fmt.Errorf("embedder %s: got %d vectors for %d texts", e.name, len(v), len(texts))
	}
	return v, nil
}
