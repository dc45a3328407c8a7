package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	collection string
	dimension  int
	client     *resty.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}
	return &Storage{collection: cfg.Collection, client: client}
}

// PointID maps a chunk id onto the UUID space Qdrant accepts for point ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension < 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	if dimension == 0 {
		return nil
	}
	return s.createCollection(ctx)
}

func (s *Storage) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant answers 409 when the collection already exists.
	resp, err := s.client.R().SetContext(ctx).SetBody(body).
		Put(fmt.Sprintf("/collections/%s", s.collection))
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 409 {
		return fmt.Errorf("qdrant create collection failed: %s", resp.Status())
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if s.dimension == 0 {
		s.dimension = len(chunks[0].Embedding)
		if err := s.createCollection(ctx); err != nil {
			return err
		}
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":     PointID(ch.ID),
			"vector": ch.Embedding,
			"payload": map[string]any{
				"chunk_id": ch.ID,
				"source":   ch.Source,
				"page":     ch.Page,
				"index":    ch.Index,
			},
		}
	}
	resp, err := s.client.R().SetContext(ctx).
		SetQueryParam("wait", "true").
		SetBody(map[string]any{"points": points}).
		Put(fmt.Sprintf("/collections/%s/points", s.collection))
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("qdrant upsert failed: %s", resp.Status())
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	var out searchResponse
	resp, err := s.client.R().SetContext(ctx).
		SetBody(map[string]any{
			"vector":       vector,
			"limit":        topK,
			"with_payload": true,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/collections/%s/points/search", s.collection))
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("qdrant search failed: %s", resp.Status())
	}
	hits := make([]domain.Hit, 0, len(out.Result))
	for _, r := range out.Result {
		id, ok := r.Payload["chunk_id"].(string)
		if !ok {
			continue
		}
		hits = append(hits, domain.Hit{ChunkID: id, Score: vectorstore.Clamp(r.Score)})
	}
	return hits, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).
		Delete(fmt.Sprintf("/collections/%s", s.collection))
	if err != nil {
		return fmt.Errorf("qdrant clear: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("qdrant clear failed: %s", resp.Status())
	}
	return nil
}
