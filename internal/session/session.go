// Package session coordinates one conversation: each question is classified,
// answered from retrieved context and streamed back, and completed exchanges
// are kept as rolling history.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/intent"
	"ragchitchat/internal/logger"
	"ragchitchat/internal/prompt"
)

// Retriever produces the fused context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (domain.RetrievalResult, error)
}

// Assembler builds the generation request for a turn.
type Assembler interface {
	Assemble(in prompt.Input) (domain.PromptRequest, error)
}

// Config holds the per-session settings.
type Config struct {
	// Model is used until SwitchModel selects another.
	Model           string
	HistoryCapacity int
	// Classify overrides the default query classifier.
	Classify func(question string) domain.QueryIntent
	Now      func() time.Time
}

// Session runs at most one turn at a time. Concurrent Ask, or Reset during a
// turn, fails with domain.ErrBusy.
type Session struct {
	id        string
	retriever Retriever
	assembler Assembler
	completer domain.Completer
	classify  func(string) domain.QueryIntent
	now       func() time.Time

	state   atomic.Int32
	history *History

	mu    sync.RWMutex
	model string
}

// New returns an idle session with an empty history of cfg.HistoryCapacity turns.
func New(cfg Config, retriever Retriever, assembler Assembler, completer domain.Completer) *Session {
	if cfg.Classify == nil {
		cfg.Classify = intent.Classify
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		id:        uuid.NewString(),
		retriever: retriever,
		assembler: assembler,
		completer: completer,
		classify:  cfg.Classify,
		now:       cfg.Now,
		history:   NewHistory(cfg.HistoryCapacity),
		model:     cfg.Model,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// History returns the completed turns, oldest first.
func (s *Session) History() []domain.ConversationTurn { return s.history.Turns() }

func (s *Session) HistoryCapacity() int { return s.history.Capacity() }

func (s *Session) AvailableModels(ctx context.Context) ([]string, error) {
	return s.completer.ListModels(ctx)
}

// Ask runs classification, retrieval and prompt assembly, then starts
// generation. The returned stream must be drained or cancelled before the
// next Ask. Errors before generation leave history untouched.
func (s *Session) Ask(ctx context.Context, question string) (*Stream, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateClassifying)) {
		return nil, domain.ErrBusy
	}
	log := logger.FromContext(ctx).With("session_id", s.id)
	question = strings.TrimSpace(question)
	qi := s.classify(question)
	log.Debug("classified question", "intent", qi)

	s.setState(StateRetrieving)
	res, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.setState(StateIdle)
		return nil, err
	}

	s.setState(StateAssembling)
	model := s.Model()
	req, err := s.assembler.Assemble(prompt.Input{
		Question: question,
		Intent:   qi,
		Result:   res,
		History:  s.history.Turns(),
		Model:    model,
	})
	if err != nil {
		s.setState(StateIdle)
		return nil, err
	}
	log.Debug("assembled prompt",
		"intent", qi, "results", res.Len(), "tokens", req.Tokens,
		"dropped_chunks", req.DroppedChunks, "dropped_turns", req.DroppedTurns)

	s.setState(StateGenerating)
	genCtx, cancel := context.WithCancel(ctx)
	frags, err := s.completer.StreamComplete(genCtx, req)
	if err != nil {
		cancel()
		s.setState(StateIdle)
		return nil, fmt.Errorf("start generation: %w", err)
	}
	return &Stream{
		session:  s,
		log:      log,
		ctx:      genCtx,
		cancel:   cancel,
		frags:    frags,
		question: question,
		intent:   qi,
		result:   res,
		request:  req,
	}, nil
}

// Reset clears the history. It fails with domain.ErrBusy during a turn.
func (s *Session) Reset() error {
	if s.State() != StateIdle {
		return domain.ErrBusy
	}
	s.history.Clear()
	return nil
}

// SwitchModel selects name for subsequent turns. A name matches an available
// model exactly or once the ":latest" tag is ignored on either side.
func (s *Session) SwitchModel(ctx context.Context, name string) error {
	models, err := s.completer.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	matched, ok := matchModel(name, models)
	if !ok {
		return &domain.ModelNotFoundError{Name: name, Available: models}
	}
	s.mu.Lock()
	s.model = matched
	s.mu.Unlock()
	logger.FromContext(ctx).Info("switched model", "session_id", s.id, "model", matched)
	return nil
}

func matchModel(name string, models []string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, m := range models {
		if m == name {
			return m, true
		}
	}
	base := strings.TrimSuffix(name, ":latest")
	for _, m := range models {
		if strings.TrimSuffix(m, ":latest") == base {
			return m, true
		}
	}
	return "", false
}

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// commit records a finished turn and releases the session.
func (s *Session) commit(turn *domain.ConversationTurn) {
	if turn != nil {
		s.history.Append(*turn)
	}
	s.setState(StateIdle)
}
