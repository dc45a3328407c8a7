// Package store holds the immutable chunk catalog shared by both retrieval
// paths once ingestion finishes.
package store

import (
	"context"
	"fmt"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/lexical"
	"ragchitchat/internal/vectorstore"
)

// Store is read-only after Build and safe for concurrent queries.
type Store struct {
	chunks  map[string]domain.Chunk
	order   []string
	vectors vectorstore.Index
	lexical *lexical.Index
}

var _ domain.ChunkStore = (*Store)(nil)

// Build indexes chunks into the given vector index and a BM25 index.
// Chunk ids must be unique.
func Build(ctx context.Context, chunks []domain.Chunk, vectors vectorstore.Index, params lexical.Params) (*Store, error) {
	s := &Store{
		chunks:  make(map[string]domain.Chunk, len(chunks)),
		order:   make([]string, 0, len(chunks)),
		vectors: vectors,
	}
	for _, ch := range chunks {
		if _, dup := s.chunks[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %q", ch.ID)
		}
		s.chunks[ch.ID] = ch
		s.order = append(s.order, ch.ID)
	}
	dim := 0
	if len(chunks) > 0 {
		dim = len(chunks[0].Embedding)
	}
	if err := vectors.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear vector index: %w", err)
	}
	if err := vectors.Init(ctx, dim); err != nil {
		return nil, fmt.Errorf("init vector index: %w", err)
	}
	if len(chunks) > 0 {
		if err := vectors.Upsert(ctx, chunks); err != nil {
			return nil, fmt.Errorf("upsert vectors: %w", err)
		}
	}
	s.lexical = lexical.Build(params, chunks)
	return s, nil
}

func (s *Store) QueryVector(ctx context.Context, embedding []float32, n int) ([]domain.Hit, error) {
	if len(s.chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	return s.vectors.Search(ctx, embedding, n)
}

func (s *Store) QueryLexical(_ context.Context, text string, n int) ([]domain.Hit, error) {
	return s.lexical.Score(text, n)
}

func (s *Store) GetChunk(_ context.Context, id string) (domain.Chunk, error) {
	ch, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
	}
	return ch, nil
}

func (s *Store) Len() int { return len(s.chunks) }

// Chunks returns all chunks in ingestion order.
func (s *Store) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.order))
	for i, id := range s.order {
		out[i] = s.chunks[id]
	}
	return out
}
