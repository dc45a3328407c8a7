// Package memory is the in-process vector index used when no external
// vector database is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension < 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.ids = nil
	s.vectors = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chunks {
		if s.dimension == 0 {
			s.dimension = len(ch.Embedding)
		}
		if len(ch.Embedding) != s.dimension {
			return fmt.Errorf("chunk %s: vector dimension %d does not match index dimension %d",
				ch.ID, len(ch.Embedding), s.dimension)
		}
	}
	for _, ch := range chunks {
		s.ids = append(s.ids, ch.ID)
		s.vectors = append(s.vectors, ch.Embedding)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	hits := make([]domain.Hit, len(s.vectors))
	for i := range s.vectors {
		hits[i] = domain.Hit{ChunkID: s.ids[i], Score: vectorstore.Cosine(s.vectors[i], vector)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.vectors = nil
	return nil
}

// Len returns the number of stored vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}
