// Package chunker splits page-located documents into retrieval chunks.
package chunker

import (
	"fmt"
	"strings"

	"ragchitchat/internal/domain"
)

// ChunkID is the stable identifier of the idx-th chunk of a document page.
func ChunkID(documentID string, page, idx int) string {
	return fmt.Sprintf("%s:%d:%d", documentID, page, idx)
}

// New returns the chunker named by kind: "recursive" (default) or "sentence".
// For "sentence", size and overlap count sentences rather than characters.
func New(kind string, size, overlap int) (domain.Chunker, error) {
	switch strings.ToLower(kind) {
	case "", "recursive":
		return NewRecursiveChunker(size, overlap)
	case "sentence":
		return NewSentenceChunker(size, overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunker %q", kind)
	}
}
