package domain

import (
	"fmt"
	"time"
)

// Page is one page or slide of a source document.
type Page struct {
	Number int
	Text   string
}

// Document represents a single lecture file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Source  string
	Pages   []Page
	Size    int64
	ModTime time.Time
}

// Chunk is the atomic unit of retrieval. Chunks are created once during
// ingestion and never mutated afterwards.
type Chunk struct {
	ID        string
	Source    string
	Page      int
	Index     int
	Text      string
	Embedding []float32
}

// Locator renders the source/page reference used for citations.
func (c Chunk) Locator() string {
	return fmt.Sprintf("%s (Page/Slide: %d)", c.Source, c.Page)
}

// Method identifies the retrieval path that scored a chunk.
type Method string

const (
	MethodVector  Method = "vector"
	MethodLexical Method = "lexical"
	MethodHybrid  Method = "hybrid"
)

// Hit is a (chunk id, score) pair returned by an index query.
type Hit struct {
	ChunkID string
	Score   float64
}

// ScoredChunk pairs a chunk with a relevance score from one retrieval method.
type ScoredChunk struct {
	Chunk  Chunk
	Score  float64
	Method Method
}

// RetrievalResult is the fused, deduplicated context set for one query.
// Scores are non-increasing and chunk ids are unique.
type RetrievalResult struct {
	Chunks []ScoredChunk
}

// Len returns the number of chunks in the result.
func (r RetrievalResult) Len() int { return len(r.Chunks) }

// Empty reports whether no context was retrieved.
func (r RetrievalResult) Empty() bool { return len(r.Chunks) == 0 }

// IDs returns the chunk ids in rank order.
func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r.Chunks))
	for i := range r.Chunks {
		ids[i] = r.Chunks[i].Chunk.ID
	}
	return ids
}
