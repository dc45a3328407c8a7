package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls    int
	prepared int
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Prepare(context.Context, []string) error {
	c.prepared++
	return nil
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = c.Embed(ctx, t)
	}
	return out, nil
}

func TestCached(t *testing.T) {
	t.Run("Should serve repeated queries from the cache", func(t *testing.T) {
		inner := &countingEmbedder{}
		c, err := NewCached(inner, 2)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			v, err := c.Embed(t.Context(), "what is ci")
			require.NoError(t, err)
			assert.Equal(t, []float32{10}, v)
		}
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("Should purge on Prepare", func(t *testing.T) {
		inner := &countingEmbedder{}
		c, err := NewCached(inner, 2)
		require.NoError(t, err)
		_, _ = c.Embed(t.Context(), "q")
		require.NoError(t, c.Prepare(t.Context(), []string{"doc"}))
		assert.Zero(t, c.Len())
		assert.Equal(t, 1, inner.prepared)
	})

	t.Run("Should reject a non-positive size", func(t *testing.T) {
		_, err := NewCached(&countingEmbedder{}, 0)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should default to tfidf", func(t *testing.T) {
		e, err := New(Config{})
		require.NoError(t, err)
		assert.Equal(t, "tfidf", e.Name())
	})
	t.Run("Should wrap with a cache when sized", func(t *testing.T) {
		e, err := New(Config{Type: "tfidf", CacheSize: 8})
		require.NoError(t, err)
		assert.IsType(t, &Cached{}, e)
	})
	t.Run("Should reject unknown types", func(t *testing.T) {
		_, err := New(Config{Type: "word2vec"})
		assert.Error(t, err)
	})
}
