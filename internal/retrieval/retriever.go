package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/logger"
)

// Retriever runs both scorers for a query and merges their rankings.
type Retriever struct {
	store      domain.ChunkStore
	embedder   domain.Embedder
	vector     *VectorScorer
	lexical    *LexicalScorer
	merger     *Merger
	candidates int
}

// NewRetriever builds a retriever that asks each scorer for candidates chunks.
// candidates below the merger's topK is raised to topK.
func NewRetriever(store domain.ChunkStore, embedder domain.Embedder, merger *Merger, candidates int) *Retriever {
	if candidates < merger.TopK() {
		candidates = merger.TopK()
	}
	return &Retriever{
		store:      store,
		embedder:   embedder,
		vector:     NewVectorScorer(store),
		lexical:    NewLexicalScorer(store),
		merger:     merger,
		candidates: candidates,
	}
}

// Retrieve embeds the query and queries both indexes concurrently.
func (r *Retriever) Retrieve(ctx context.Context, query string) (domain.RetrievalResult, error) {
	if r.store.Len() == 0 {
		return domain.RetrievalResult{}, domain.ErrEmptyIndex
	}
	var vector, lexical []domain.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emb, err := r.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		vector, err = r.vector.Score(gctx, emb, r.candidates)
		return err
	})
	g.Go(func() error {
		var err error
		lexical, err = r.lexical.Score(gctx, query, r.candidates)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RetrievalResult{}, err
	}
	res := r.merger.Merge(vector, lexical)
	logger.FromContext(ctx).Debug("retrieved context",
		"vector", len(vector), "lexical", len(lexical), "results", res.Len())
	return res, nil
}
