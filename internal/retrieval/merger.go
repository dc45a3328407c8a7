package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"ragchitchat/internal/domain"
)

// Fusion selects how the two ranked lists are combined.
type Fusion string

const (
	// FusionMinMax is the weighted sum of per-list min-max normalized scores.
	FusionMinMax Fusion = "minmax"
	// FusionRRF is weighted reciprocal rank fusion.
	FusionRRF Fusion = "rrf"
)

// RRFConstant is the rank offset used by reciprocal rank fusion.
const RRFConstant = 60

// ParseFusion accepts "minmax" (or "") and "rrf".
func ParseFusion(s string) (Fusion, error) {
	switch Fusion(strings.ToLower(strings.TrimSpace(s))) {
	case "", FusionMinMax:
		return FusionMinMax, nil
	case FusionRRF:
		return FusionRRF, nil
	default:
		return "", fmt.Errorf("unknown fusion %q", s)
	}
}

// Weights are the per-method fusion weights.
type Weights struct {
	Vector  float64
	Lexical float64
}

// DefaultWeights weighs both methods equally.
func DefaultWeights() Weights { return Weights{Vector: 0.5, Lexical: 0.5} }

// Merger fuses vector and lexical rankings into a RetrievalResult.
type Merger struct {
	topK    int
	weights Weights
	fusion  Fusion
}

// NewMerger returns a merger keeping topK chunks. Negative or all-zero weights
// fall back to DefaultWeights and an empty fusion to FusionMinMax.
func NewMerger(topK int, weights Weights, fusion Fusion) *Merger {
	if weights.Vector < 0 || weights.Lexical < 0 || weights.Vector+weights.Lexical == 0 {
		weights = DefaultWeights()
	}
	if fusion == "" {
		fusion = FusionMinMax
	}
	return &Merger{topK: topK, weights: weights, fusion: fusion}
}

// TopK is the maximum number of chunks Merge returns.
func (m *Merger) TopK() int { return m.topK }

type fused struct {
	chunk   domain.Chunk
	score   float64
	vector  bool
	lexical bool
}

// Merge normalizes each list independently, combines the weighted scores and
// returns at most topK chunks ordered by fused score, then chunk id. A chunk
// found by only one method scores zero for the other.
func (m *Merger) Merge(vector, lexical []domain.ScoredChunk) domain.RetrievalResult {
	if m.topK <= 0 || (len(vector) == 0 && len(lexical) == 0) {
		return domain.RetrievalResult{}
	}
	var nv, nl map[string]float64
	if m.fusion == FusionRRF {
		nv, nl = rankScores(vector), rankScores(lexical)
	} else {
		nv, nl = minMax(vector), minMax(lexical)
	}

	byID := make(map[string]*fused, len(nv)+len(nl))
	add := func(list []domain.ScoredChunk, norm map[string]float64, weight float64, isVector bool) {
		for _, sc := range list {
			f, ok := byID[sc.Chunk.ID]
			if !ok {
				f = &fused{chunk: sc.Chunk}
				byID[sc.Chunk.ID] = f
			}
			if isVector {
				if f.vector {
					continue
				}
				f.vector = true
			} else {
				if f.lexical {
					continue
				}
				f.lexical = true
			}
			f.score += weight * norm[sc.Chunk.ID]
		}
	}
	add(vector, nv, m.weights.Vector, true)
	add(lexical, nl, m.weights.Lexical, false)

	out := make([]domain.ScoredChunk, 0, len(byID))
	for _, f := range byID {
		method := domain.MethodHybrid
		switch {
		case !f.lexical:
			method = domain.MethodVector
		case !f.vector:
			method = domain.MethodLexical
		}
		out = append(out, domain.ScoredChunk{Chunk: f.chunk, Score: f.score, Method: method})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Chunk.ID < out[j].Chunk.ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > m.topK {
		out = out[:m.topK]
	}
	return domain.RetrievalResult{Chunks: out}
}

// minMax scales the best score of each chunk to [0,1] over the list. A list
// whose scores are all equal maps every entry to 1.
func minMax(list []domain.ScoredChunk) map[string]float64 {
	best := make(map[string]float64, len(list))
	for _, sc := range list {
		if cur, ok := best[sc.Chunk.ID]; !ok || sc.Score > cur {
			best[sc.Chunk.ID] = sc.Score
		}
	}
	if len(best) == 0 {
		return best
	}
	lo, hi := 0.0, 0.0
	first := true
	for _, s := range best {
		if first {
			lo, hi, first = s, s, false
			continue
		}
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	span := hi - lo
	for id, s := range best {
		if span == 0 {
			best[id] = 1
			continue
		}
		best[id] = (s - lo) / span
	}
	return best
}

// rankScores assigns 1/(k+rank) by first appearance, rank starting at 1.
func rankScores(list []domain.ScoredChunk) map[string]float64 {
	out := make(map[string]float64, len(list))
	rank := 0
	for _, sc := range list {
		if _, ok := out[sc.Chunk.ID]; ok {
			continue
		}
		rank++
		out[sc.Chunk.ID] = 1 / float64(RRFConstant+rank)
	}
	return out
}
