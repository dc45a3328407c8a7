// Package embedding selects and decorates the embedding service.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"ragchitchat/internal/domain"
)

// Cached memoizes query embeddings in an LRU cache.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

var _ domain.Embedder = (*Cached)(nil)

func NewCached(inner domain.Embedder, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedder %q: cache size must be greater than zero", inner.Name())
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: init cache: %w", inner.Name(), err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

// Prepare forwards to the wrapped embedder and drops cached vectors, which
// may no longer match the new corpus.
func (c *Cached) Prepare(ctx context.Context, corpus []string) error {
	c.cache.Purge()
	return c.inner.Prepare(ctx, corpus)
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, texts)
}

func (c *Cached) Len() int { return c.cache.Len() }

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
