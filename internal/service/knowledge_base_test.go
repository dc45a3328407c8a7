package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchitchat/internal/chunker"
	"ragchitchat/internal/domain"
	"ragchitchat/internal/embedding/tfidf"
	"ragchitchat/internal/summarizer"
	"ragchitchat/internal/vectorstore/memory"
	"ragchitchat/internal/vectorstore/sqlite"
)

type countingEmbedder struct {
	*tfidf.Embedder
	batches int
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches++
	return c.Embedder.EmbedDocuments(ctx, texts)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"week1.txt": "Agile teams deliver software in short iterations. Scrum is an agile framework.",
		"week5.md":  "Docker packages an application into a container image. Containers share the host kernel.",
	}
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func openCatalog(t *testing.T) *sqlite.Catalog {
	t.Helper()
	c, err := sqlite.Open(t.Context(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newBuilder(t *testing.T, emb domain.Embedder, catalog Catalog, opts Options) *Builder {
	t.Helper()
	ch, err := chunker.NewRecursiveChunker(60, 10)
	require.NoError(t, err)
	return NewBuilder(ch, emb, memory.NewStorage(), summarizer.NewFrequencySummarizer(), catalog, opts)
}

func TestBuilder_Build(t *testing.T) {
	t.Run("Should ingest the data directory into a queryable store", func(t *testing.T) {
		dir := writeCorpus(t)
		emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
		kb, err := newBuilder(t, emb, nil, Options{DataDir: dir, Settings: "recursive:60:10"}).Build(t.Context())
		require.NoError(t, err)
		assert.False(t, kb.Reused)
		assert.Equal(t, []string{"week1.txt", "week5.md"}, kb.Sources)
		assert.Positive(t, kb.Store.Len())
		assert.NotEmpty(t, kb.Summary)
		assert.Equal(t, 1, emb.batches)

		hits, err := kb.Store.QueryLexical(t.Context(), "docker container", 3)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		ch, err := kb.Store.GetChunk(t.Context(), hits[0].ChunkID)
		require.NoError(t, err)
		assert.Equal(t, "week5.md", ch.Source)
		assert.NotEmpty(t, ch.Embedding)
	})

	t.Run("Should reuse the catalog for an unchanged corpus", func(t *testing.T) {
		dir := writeCorpus(t)
		catalog := openCatalog(t)
		opts := Options{DataDir: dir, Settings: "recursive:60:10"}

		first, err := newBuilder(t, &countingEmbedder{Embedder: tfidf.NewEmbedder()}, catalog, opts).Build(t.Context())
		require.NoError(t, err)
		require.False(t, first.Reused)

		emb := &countingEmbedder{Embedder: tfidf.NewEmbedder()}
		second, err := newBuilder(t, emb, catalog, opts).Build(t.Context())
		require.NoError(t, err)
		assert.True(t, second.Reused)
		assert.Zero(t, emb.batches)
		assert.Equal(t, first.Store.Chunks(), second.Store.Chunks())

		vec, err := emb.Embed(t.Context(), "docker image")
		require.NoError(t, err)
		hits, err := second.Store.QueryVector(t.Context(), vec, 2)
		require.NoError(t, err)
		assert.NotEmpty(t, hits)
	})

	t.Run("Should rebuild when forced or when settings change", func(t *testing.T) {
		dir := writeCorpus(t)
		catalog := openCatalog(t)
		_, err := newBuilder(t, &countingEmbedder{Embedder: tfidf.NewEmbedder()}, catalog,
			Options{DataDir: dir, Settings: "a"}).Build(t.Context())
		require.NoError(t, err)

		forced, err := newBuilder(t, &countingEmbedder{Embedder: tfidf.NewEmbedder()}, catalog,
			Options{DataDir: dir, Settings: "a", Force: true}).Build(t.Context())
		require.NoError(t, err)
		assert.False(t, forced.Reused)

		changed, err := newBuilder(t, &countingEmbedder{Embedder: tfidf.NewEmbedder()}, catalog,
			Options{DataDir: dir, Settings: "b"}).Build(t.Context())
		require.NoError(t, err)
		assert.False(t, changed.Reused)
	})

	t.Run("Should build an empty store for an empty directory", func(t *testing.T) {
		kb, err := newBuilder(t, tfidf.NewEmbedder(), openCatalog(t), Options{DataDir: t.TempDir()}).Build(t.Context())
		require.NoError(t, err)
		assert.Zero(t, kb.Store.Len())
		assert.Empty(t, kb.Sources)
		assert.Empty(t, kb.Summary)
	})
}

func TestFingerprint(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	docs := []domain.Document{
		{Source: "b.pdf", Size: 10, ModTime: at},
		{Source: "a.pdf", Size: 20, ModTime: at},
	}

	t.Run("Should not depend on document order", func(t *testing.T) {
		reversed := []domain.Document{docs[1], docs[0]}
		assert.Equal(t, Fingerprint(docs, "tfidf", "s"), Fingerprint(reversed, "tfidf", "s"))
	})

	t.Run("Should change with modification time, embedder or settings", func(t *testing.T) {
		base := Fingerprint(docs, "tfidf", "s")
		touched := []domain.Document{docs[0], {Source: "a.pdf", Size: 20, ModTime: at.Add(time.Second)}}
		assert.NotEqual(t, base, Fingerprint(touched, "tfidf", "s"))
		assert.NotEqual(t, base, Fingerprint(docs, "ollama:nomic", "s"))
		assert.NotEqual(t, base, Fingerprint(docs, "tfidf", "t"))
	})
}
