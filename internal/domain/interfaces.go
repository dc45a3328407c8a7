package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// ChunkStore is a read-only view over indexed chunks. Implementations must be
// safe for concurrent use.
type ChunkStore interface {
	QueryVector(ctx context.Context, embedding []float32, n int) ([]Hit, error)
	QueryLexical(ctx context.Context, text string, n int) ([]Hit, error)
	GetChunk(ctx context.Context, id string) (Chunk, error)
	Len() int
}

// Fragment is one piece of a streamed completion. A fragment with a non-nil
// Err is terminal.
type Fragment struct {
	Text string
	Err  error
}

// Completer is a streaming text-completion service.
type Completer interface {
	ListModels(ctx context.Context) ([]string, error)
	// StreamComplete starts a generation. The returned channel is closed when the
	// generation ends or ctx is cancelled.
	StreamComplete(ctx context.Context, req PromptRequest) (<-chan Fragment, error)
}
