package chunker

import (
	"regexp"
	"strings"

	"ragchitchat/internal/domain"
)

// SentenceChunker splits each page into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`[^.!?]+[.!?]+`),
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	idx := 0
	for _, page := range document.Pages {
		for _, text := range c.windows(page.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:     ChunkID(document.ID, page.Number, idx),
				Source: document.Source,
				Page:   page.Number,
				Index:  idx,
				Text:   text,
			})
			idx++
		}
	}
	return chunks, nil
}

func (c *SentenceChunker) windows(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	sentences := c.sentences(trimmed)
	var out []string
	for i := 0; i < len(sentences); {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return out
}

// sentences keeps trailing text without terminal punctuation as a sentence.
func (c *SentenceChunker) sentences(text string) []string {
	locs := c.splitter.FindAllStringIndex(text, -1)
	var out []string
	last := 0
	for _, loc := range locs {
		if s := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := strings.Join(strings.Fields(text[last:]), " "); rest != "" {
		out = append(out, rest)
	}
	return out
}
