package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/logger"
)

// Stream yields the fragments of one answer in order. It has a single
// consumer. The turn is committed to history only when generation ends
// without error or cancellation.
type Stream struct {
	session *Session
	log     logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	frags   <-chan domain.Fragment

	question string
	intent   domain.QueryIntent
	result   domain.RetrievalResult
	request  domain.PromptRequest

	answer strings.Builder

	once     sync.Once
	finished atomic.Bool
	mu       sync.Mutex
	err      error
	turn     *domain.ConversationTurn
}

// Next blocks for the next fragment. It returns false once the stream has
// ended; Err then reports why, if it did not complete.
func (st *Stream) Next() (string, bool) {
	for !st.finished.Load() {
		select {
		case f, ok := <-st.frags:
			if !ok {
				if err := st.ctx.Err(); err != nil {
					st.finish(err, false)
				} else {
					st.finish(nil, true)
				}
				return "", false
			}
			if f.Err != nil {
				st.finish(f.Err, false)
				return "", false
			}
			if f.Text == "" {
				continue
			}
			st.answer.WriteString(f.Text)
			return f.Text, true
		case <-st.ctx.Done():
			st.finish(st.ctx.Err(), false)
			return "", false
		}
	}
	return "", false
}

// Cancel aborts generation and discards the partial answer.
func (st *Stream) Cancel() {
	st.finish(context.Canceled, false)
}

// Err is the terminal error, or nil while streaming and after completion.
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Turn returns the committed turn once the stream has completed.
func (st *Stream) Turn() (domain.ConversationTurn, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.turn == nil {
		return domain.ConversationTurn{}, false
	}
	return *st.turn, true
}

func (st *Stream) Intent() domain.QueryIntent { return st.intent }

func (st *Stream) Result() domain.RetrievalResult { return st.result }

func (st *Stream) Request() domain.PromptRequest { return st.request }

// Done reports whether the stream has ended.
func (st *Stream) Done() bool { return st.finished.Load() }

func (st *Stream) finish(err error, complete bool) {
	st.once.Do(func() {
		st.cancel()
		var turn *domain.ConversationTurn
		if complete {
			turn = &domain.ConversationTurn{
				Question:  st.question,
				Intent:    st.intent,
				ChunkIDs:  st.request.ChunkIDs,
				Answer:    st.answer.String(),
				Model:     st.request.Model,
				Timestamp: st.session.now(),
			}
		}
		st.mu.Lock()
		st.err = err
		st.turn = turn
		st.mu.Unlock()
		st.session.commit(turn)
		st.finished.Store(true)
		if err != nil {
			st.log.Info("turn aborted", "intent", st.intent, "error", err)
		} else {
			st.log.Info("turn completed", "intent", st.intent, "model", st.request.Model, "chunks", len(turn.ChunkIDs))
		}
	})
}
