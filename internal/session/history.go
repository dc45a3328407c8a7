package session

import (
	"sync"

	"ragchitchat/internal/domain"
)

// DefaultHistoryCapacity is the retention used when none is configured.
const DefaultHistoryCapacity = 10

// History keeps the most recent completed turns, evicting the oldest first.
type History struct {
	mu       sync.RWMutex
	capacity int
	turns    []domain.ConversationTurn
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, turns: make([]domain.ConversationTurn, 0, capacity)}
}

func (h *History) Append(turn domain.ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == h.capacity {
		copy(h.turns, h.turns[1:])
		h.turns = h.turns[:len(h.turns)-1]
	}
	h.turns = append(h.turns, turn)
}

// Turns returns a copy of the retained turns, oldest first.
func (h *History) Turns() []domain.ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Last() (domain.ConversationTurn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return domain.ConversationTurn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *History) Capacity() int { return h.capacity }

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = h.turns[:0]
}
