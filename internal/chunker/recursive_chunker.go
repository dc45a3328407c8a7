package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"ragchitchat/internal/domain"
)

// RecursiveChunker splits each page on paragraph, line and word boundaries
// into chunks of at most size characters with overlap characters shared
// between neighbours.
type RecursiveChunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &RecursiveChunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}, nil
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	idx := 0
	for _, page := range document.Pages {
		text := normalize(page.Text)
		if text == "" {
			continue
		}
		segments, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split %s page %d: %w", document.ID, page.Number, err)
		}
		for _, segment := range segments {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:     ChunkID(document.ID, page.Number, idx),
				Source: document.Source,
				Page:   page.Number,
				Index:  idx,
				Text:   segment,
			})
			idx++
		}
	}
	return chunks, nil
}

// normalize trims trailing spaces and collapses runs of blank lines.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
