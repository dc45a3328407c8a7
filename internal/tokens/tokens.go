// Package tokens measures text against the prompt context budget.
package tokens

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter reports the size of a text in tokens.
type Counter interface {
	Count(text string) int
}

// RuneEstimator approximates one token per four runes.
type RuneEstimator struct{}

func (RuneEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encodingName string
	mu           sync.Mutex
	tke          *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, or cl100k_base when empty.
// Loading may download the vocabulary on first use.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding '%s': %w", encoding, err)
	}
	return &TiktokenCounter{encodingName: encoding, tke: tke}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tke.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Encoding() string { return c.encodingName }

// New returns the counter named by kind: "estimate" (default) or "tiktoken".
func New(kind string) (Counter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "estimate":
		return RuneEstimator{}, nil
	case "tiktoken":
		return NewTiktokenCounter(defaultEncoding)
	default:
		return nil, fmt.Errorf("unknown token counter %q", kind)
	}
}
