package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyIndex means no chunks are available for retrieval.
	ErrEmptyIndex = errors.New("no knowledge base loaded")
	// ErrContextOverflow means the question alone exceeds the context budget.
	ErrContextOverflow = errors.New("question exceeds the context budget")
	// ErrBusy means an operation was attempted while a turn is in progress.
	ErrBusy = errors.New("session is busy")
	// ErrModelNotFound means the requested model is not available.
	ErrModelNotFound = errors.New("model not found")
	// ErrChunkNotFound means a chunk id does not resolve in the store.
	ErrChunkNotFound = errors.New("chunk not found")
)

// ContextOverflowError reports the size of an oversized question.
type ContextOverflowError struct {
	QuestionTokens int
	Budget         int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("question is %d tokens but the context budget is %d tokens", e.QuestionTokens, e.Budget)
}

func (e *ContextOverflowError) Is(target error) bool { return target == ErrContextOverflow }

// ModelNotFoundError carries the models that are available instead.
type ModelNotFoundError struct {
	Name      string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("model %q not found: no models available", e.Name)
	}
	return fmt.Sprintf("model %q not found; available: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }
