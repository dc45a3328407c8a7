// Package ollama streams completions from a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"ragchitchat/internal/domain"
)

const DefaultBaseURL = "http://localhost:11434"

type Config struct {
	BaseURL string
	// Timeout bounds model listing only; generation is bounded by the caller's context.
	Timeout time.Duration
}

// ModelFactory builds a langchaingo model for a model name.
type ModelFactory func(model string) (llms.Model, error)

// Client implements domain.Completer.
type Client struct {
	baseURL string
	http    *resty.Client
	factory ModelFactory

	mu     sync.Mutex
	models map[string]llms.Model
}

var _ domain.Completer = (*Client)(nil)

func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return NewWithFactory(cfg, func(model string) (llms.Model, error) {
		return lcollama.New(lcollama.WithModel(model), lcollama.WithServerURL(baseURL))
	})
}

// NewWithFactory uses factory instead of the langchaingo Ollama client.
func NewWithFactory(cfg Config, factory ModelFactory) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		factory: factory,
		models:  make(map[string]llms.Model),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type listModelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the locally installed model names, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var out listModelsResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/tags")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama at %s: %w", c.baseURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama server responded with status %d", resp.StatusCode())
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) model(name string) (llms.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[name]; ok {
		return m, nil
	}
	m, err := c.factory(name)
	if err != nil {
		return nil, fmt.Errorf("create model %s: %w", name, err)
	}
	c.models[name] = m
	return m, nil
}

// StreamComplete starts generation and returns fragments in order. A fragment
// carrying Err is the last one. The channel closes when generation ends or
// ctx is cancelled.
func (c *Client) StreamComplete(ctx context.Context, req domain.PromptRequest) (<-chan domain.Fragment, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	model, err := c.model(req.Model)
	if err != nil {
		return nil, err
	}
	messages := toMessages(req.Messages)
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		send := func(f domain.Fragment) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}
		streamed := false
		callOpts := append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			if !send(domain.Fragment{Text: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}))
		resp, err := model.GenerateContent(ctx, messages, callOpts...)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			send(domain.Fragment{Err: fmt.Errorf("generate: %w", err)})
			return
		}
		if !streamed && resp != nil && len(resp.Choices) > 0 && resp.Choices[0].Content != "" {
			send(domain.Fragment{Text: resp.Choices[0].Content})
		}
	}()
	return out, nil
}

func toMessages(msgs []domain.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case domain.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case domain.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
