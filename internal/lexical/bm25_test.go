package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchitchat/internal/domain"
)

func chunks(texts map[string]string) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(texts))
	for id, text := range texts {
		out = append(out, domain.Chunk{ID: id, Text: text})
	}
	return out
}

func TestIndex_Score(t *testing.T) {
	t.Run("Should fail on an empty corpus", func(t *testing.T) {
		ix := Build(DefaultParams(), nil)
		_, err := ix.Score("anything", 3)
		assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	})

	t.Run("Should return empty for n of zero or no matching terms", func(t *testing.T) {
		ix := Build(DefaultParams(), chunks(map[string]string{"a": "continuous integration pipeline"}))
		hits, err := ix.Score("integration", 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
		hits, err = ix.Score("kubernetes", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
		hits, err = ix.Score("the of and", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("Should saturate repeated terms", func(t *testing.T) {
		ix := Build(DefaultParams(), chunks(map[string]string{
			"once":  "docker image layer cache",
			"twice": "docker docker layer cache",
			"none":  "agile scrum sprint review",
		}))
		hits, err := ix.Score("docker", 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "twice", hits[0].ChunkID)
		assert.Equal(t, "once", hits[1].ChunkID)
		assert.Less(t, hits[0].Score, 2*hits[1].Score)
	})

	t.Run("Should favor shorter chunks at equal term frequency", func(t *testing.T) {
		ix := Build(DefaultParams(), chunks(map[string]string{
			"short": "microservices scale",
			"long":  "microservices require service discovery tracing gateways brokers and careful ownership",
			"other": "waterfall model phases",
		}))
		hits, err := ix.Score("microservices", 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "short", hits[0].ChunkID)
	})

	t.Run("Should break ties by lower chunk id", func(t *testing.T) {
		ix := Build(DefaultParams(), chunks(map[string]string{
			"c2": "unit testing",
			"c1": "unit testing",
			"c3": "release train",
		}))
		hits, err := ix.Score("unit testing", 5)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "c1", hits[0].ChunkID)
		assert.Equal(t, "c2", hits[1].ChunkID)
		assert.Equal(t, hits[0].Score, hits[1].Score)
	})

	t.Run("Should truncate to n", func(t *testing.T) {
		ix := Build(DefaultParams(), chunks(map[string]string{
			"a": "devops culture", "b": "devops tooling", "c": "devops metrics",
		}))
		hits, err := ix.Score("devops", 2)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})
}
