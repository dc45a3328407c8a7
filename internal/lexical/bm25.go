// Package lexical ranks chunks by BM25 term relevance.
package lexical

import (
	"math"
	"sort"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/tokenize"
)

// Params holds the BM25 tuning constants.
type Params struct {
	// K1 controls term-frequency saturation.
	K1 float64
	// B controls document length normalization.
	B float64
}

// DefaultParams returns k1=1.5, b=0.75.
func DefaultParams() Params { return Params{K1: 1.5, B: 0.75} }

// signature is the cached term-frequency profile of one chunk.
type signature struct {
	id     string
	tf     map[string]int
	length int
}

// Index is an immutable BM25 index. It is safe for concurrent queries.
type Index struct {
	params Params
	docs   []signature
	df     map[string]int
	avgLen float64
}

// Build indexes the given chunks.
func Build(params Params, chunks []domain.Chunk) *Index {
	if params.K1 <= 0 {
		params.K1 = DefaultParams().K1
	}
	if params.B < 0 || params.B > 1 {
		params.B = DefaultParams().B
	}
	ix := &Index{params: params, df: make(map[string]int)}
	total := 0
	for _, ch := range chunks {
		terms := tokenize.Terms(ch.Text)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			ix.df[t]++
		}
		ix.docs = append(ix.docs, signature{id: ch.ID, tf: tf, length: len(terms)})
		total += len(terms)
	}
	if len(ix.docs) > 0 {
		ix.avgLen = float64(total) / float64(len(ix.docs))
	}
	return ix
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.docs) }

// Score returns up to n chunks ranked by BM25 relevance to query. Chunks that
// match no query term are omitted. Ties are broken by lower chunk id.
func (ix *Index) Score(query string, n int) ([]domain.Hit, error) {
	if len(ix.docs) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if n <= 0 {
		return nil, nil
	}
	terms := uniqueTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	weights := make([]weightedTerm, 0, len(terms))
	for _, t := range terms {
		if df := ix.df[t]; df > 0 {
			weights = append(weights, weightedTerm{term: t, idf: ix.idf(df)})
		}
	}
	if len(weights) == 0 {
		return nil, nil
	}
	hits := make([]domain.Hit, 0, 16)
	for i := range ix.docs {
		if s := ix.scoreDoc(&ix.docs[i], weights); s > 0 {
			hits = append(hits, domain.Hit{ChunkID: ix.docs[i].id, Score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

type weightedTerm struct {
	term string
	idf  float64
}

func (ix *Index) scoreDoc(doc *signature, weights []weightedTerm) float64 {
	k1, b := ix.params.K1, ix.params.B
	norm := 1.0
	if ix.avgLen > 0 {
		norm = 1 - b + b*float64(doc.length)/ix.avgLen
	}
	score := 0.0
	for _, w := range weights {
		f := float64(doc.tf[w.term])
		if f == 0 {
			continue
		}
		score += w.idf * f * (k1 + 1) / (f + k1*norm)
	}
	return score
}

// idf is the non-negative Robertson/Sparck Jones weight.
func (ix *Index) idf(df int) float64 {
	n := float64(len(ix.docs))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

func uniqueTerms(text string) []string {
	terms := tokenize.Terms(text)
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
