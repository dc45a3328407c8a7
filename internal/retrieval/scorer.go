// Package retrieval ranks chunks by dense and lexical relevance and fuses the
// two rankings into one context set.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/vectorstore"
)

// VectorScorer ranks chunks by cosine similarity to a query embedding.
type VectorScorer struct {
	store domain.ChunkStore
}

func NewVectorScorer(store domain.ChunkStore) *VectorScorer {
	return &VectorScorer{store: store}
}

// Score returns up to n chunks by descending similarity. An index without
// vectors or a zero-norm query yields an empty result, and chunks with no
// positive similarity are left out.
func (s *VectorScorer) Score(ctx context.Context, embedding []float32, n int) ([]domain.ScoredChunk, error) {
	if n <= 0 || zeroNorm(embedding) {
		return nil, nil
	}
	hits, err := s.store.QueryVector(ctx, embedding, n)
	if errors.Is(err, domain.ErrEmptyIndex) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Score = vectorstore.Clamp(h.Score); h.Score > 0 {
			kept = append(kept, h)
		}
	}
	return resolve(ctx, s.store, kept, domain.MethodVector)
}

// zeroNorm reports whether v carries no direction, as an embedding of text
// sharing no vocabulary with the corpus does.
func zeroNorm(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// LexicalScorer ranks chunks by BM25 relevance to the query text.
type LexicalScorer struct {
	store domain.ChunkStore
}

func NewLexicalScorer(store domain.ChunkStore) *LexicalScorer {
	return &LexicalScorer{store: store}
}

// Score returns up to n chunks by descending BM25 score. An empty corpus
// fails with domain.ErrEmptyIndex.
func (s *LexicalScorer) Score(ctx context.Context, query string, n int) ([]domain.ScoredChunk, error) {
	hits, err := s.store.QueryLexical(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	return resolve(ctx, s.store, hits, domain.MethodLexical)
}

func resolve(ctx context.Context, store domain.ChunkStore, hits []domain.Hit, method domain.Method) ([]domain.ScoredChunk, error) {
	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		ch, err := store.GetChunk(ctx, h.ChunkID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ScoredChunk{Chunk: ch, Score: h.Score, Method: method})
	}
	return out, nil
}
