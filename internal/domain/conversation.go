package domain

import (
	"strings"
	"time"
)

// ConversationTurn is one completed question/answer exchange.
type ConversationTurn struct {
	Question  string
	Intent    QueryIntent
	ChunkIDs  []string
	Answer    string
	Model     string
	Timestamp time.Time
}

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a structured prompt.
type Message struct {
	Role    Role
	Content string
}

// PromptRequest is the assembled generation request for one turn.
type PromptRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int

	Intent        QueryIntent
	ChunkIDs      []string
	Tokens        int
	DroppedChunks int
	DroppedTurns  int
}

// Text flattens the messages for completion services that take a single prompt.
func (r PromptRequest) Text() string {
	var sb strings.Builder
	for i, m := range r.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(":\n")
		sb.WriteString(m.Content)
	}
	return sb.String()
}
