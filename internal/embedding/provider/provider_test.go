package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLC struct {
	docs [][]float32
	err  error
}

func (f *fakeLC) EmbedDocuments(context.Context, []string) ([][]float32, error) { return f.docs, f.err }

func (f *fakeLC) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2}, nil
}

func TestEmbedder(t *testing.T) {
	t.Run("Should delegate queries and documents", func(t *testing.T) {
		e := Wrap("ollama:nomic-embed-text", &fakeLC{docs: [][]float32{{1}, {2}}})
		assert.Equal(t, "ollama:nomic-embed-text", e.Name())
		v, err := e.Embed(t.Context(), "q")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2}, v)
		docs, err := e.EmbedDocuments(t.Context(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("Should reject a short batch", func(t *testing.T) {
		e := Wrap("x", &fakeLC{docs: [][]float32{{1}}})
		_, err := e.EmbedDocuments(t.Context(), []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("Should wrap provider errors", func(t *testing.T) {
		boom := errors.New("connection refused")
		_, err := Wrap("x", &fakeLC{err: boom}).Embed(t.Context(), "q")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := New(Config{Provider: "cohere", Model: "m"})
		assert.Error(t, err)
		_, err = New(Config{Provider: Ollama})
		assert.Error(t, err)
	})

	t.Run("Should construct an ollama embedder without contacting it", func(t *testing.T) {
		e, err := New(Config{Provider: Ollama, Model: "nomic-embed-text", BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		assert.Equal(t, "ollama:nomic-embed-text", e.Name())
	})
}
