package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchitchat/internal/domain"
)

// wordCounter counts whitespace separated fields so budgets are easy to reason about.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func words(n int, w string) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

func newAssembler(t *testing.T, budget int) *Assembler {
	t.Helper()
	a, err := NewAssembler(Options{Budget: budget, HistoryTurns: 3, Counter: wordCounter{}, Temperature: 0.7, MaxTokens: 512})
	require.NoError(t, err)
	return a
}

// Each chunk costs 7 header fields plus 50 text fields.
func threeChunks() domain.RetrievalResult {
	return domain.RetrievalResult{Chunks: []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: "high", Source: "a.pdf", Page: 1, Text: words(50, "alpha")}, Score: 0.9, Method: domain.MethodHybrid},
		{Chunk: domain.Chunk{ID: "mid", Source: "b.pdf", Page: 2, Text: words(50, "beta")}, Score: 0.5, Method: domain.MethodVector},
		{Chunk: domain.Chunk{ID: "low", Source: "c.pdf", Page: 3, Text: words(50, "gamma")}, Score: 0.1, Method: domain.MethodLexical},
	}}
}

// Each turn costs 40 fields.
func twoTurns() []domain.ConversationTurn {
	return []domain.ConversationTurn{
		{Question: words(10, "older"), Answer: words(30, "olderanswer")},
		{Question: words(10, "newer"), Answer: words(30, "neweranswer")},
	}
}

const question = "what is continuous delivery exactly"

func userPrompt(req domain.PromptRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

func TestAssembler_Assemble(t *testing.T) {
	t.Run("Should render context with locators and system prompt", func(t *testing.T) {
		req, err := newAssembler(t, 10000).Assemble(Input{
			Question: question, Intent: domain.IntentFactual, Result: threeChunks(), Model: "mistral",
		})
		require.NoError(t, err)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)
		assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
		body := userPrompt(req)
		assert.Contains(t, body, "[DOCUMENT 1]: a.pdf (Page/Slide: 1) [Relevance: 0.90]")
		assert.Contains(t, body, "[DOCUMENT 3]: c.pdf (Page/Slide: 3) [Relevance: 0.10]")
		assert.Contains(t, body, question)
		assert.Equal(t, []string{"high", "mid", "low"}, req.ChunkIDs)
		assert.Equal(t, "mistral", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 512, req.MaxTokens)
		assert.Positive(t, req.Tokens)
	})

	t.Run("Should select a template per intent", func(t *testing.T) {
		a := newAssembler(t, 10000)
		render := func(intent domain.QueryIntent) string {
			req, err := a.Assemble(Input{Question: question, Intent: intent, Result: threeChunks()})
			require.NoError(t, err)
			return userPrompt(req)
		}
		assert.Contains(t, render(domain.IntentFactual), "Think step-by-step")
		assert.Contains(t, render(domain.IntentComparative), "## Comparison")
		assert.Contains(t, render(domain.IntentProcedural), "## Step 1: [Step Name]")
		complexBody := render(domain.IntentComplex)
		assert.Contains(t, complexBody, "## Self-Reflection")
		assert.Contains(t, complexBody, "## Improved Answer")
		assert.Contains(t, complexBody, "- Citation:")
	})

	t.Run("Should fall back to a context-free prompt without retrieval results", func(t *testing.T) {
		req, err := newAssembler(t, 10000).Assemble(Input{Question: question, Intent: domain.IntentProcedural})
		require.NoError(t, err)
		body := userPrompt(req)
		assert.Contains(t, body, NoContextMessage)
		assert.Contains(t, body, "## Step 1: [Step Name]")
		assert.NotContains(t, body, "[DOCUMENT")
		assert.Empty(t, req.ChunkIDs)
	})

	t.Run("Should include recent history as chat turns", func(t *testing.T) {
		req, err := newAssembler(t, 10000).Assemble(Input{
			Question: question, Intent: domain.IntentFactual, Result: threeChunks(), History: twoTurns(),
		})
		require.NoError(t, err)
		require.Len(t, req.Messages, 6)
		assert.Equal(t, domain.RoleUser, req.Messages[1].Role)
		assert.Equal(t, words(10, "older"), req.Messages[1].Content)
		assert.Equal(t, domain.RoleAssistant, req.Messages[2].Role)
		assert.Equal(t, words(30, "neweranswer"), req.Messages[4].Content)
	})

	t.Run("Should drop the lowest scoring chunk first", func(t *testing.T) {
		// 3*57 + 80 + 5 = 256 fields; dropping one chunk leaves 199.
		req, err := newAssembler(t, 200).Assemble(Input{
			Question: question, Intent: domain.IntentFactual, Result: threeChunks(), History: twoTurns(),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "mid"}, req.ChunkIDs)
		assert.Equal(t, 1, req.DroppedChunks)
		assert.Equal(t, 0, req.DroppedTurns)
		assert.Len(t, req.Messages, 6)
	})

	t.Run("Should drop every chunk before touching history", func(t *testing.T) {
		req, err := newAssembler(t, 100).Assemble(Input{
			Question: question, Intent: domain.IntentFactual, Result: threeChunks(), History: twoTurns(),
		})
		require.NoError(t, err)
		assert.Empty(t, req.ChunkIDs)
		assert.Equal(t, 3, req.DroppedChunks)
		assert.Equal(t, 0, req.DroppedTurns)
		assert.Contains(t, userPrompt(req), NoContextMessage)
	})

	t.Run("Should drop the oldest history turn after all chunks", func(t *testing.T) {
		req, err := newAssembler(t, 50).Assemble(Input{
			Question: question, Intent: domain.IntentFactual, Result: threeChunks(), History: twoTurns(),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, req.DroppedChunks)
		assert.Equal(t, 1, req.DroppedTurns)
		require.Len(t, req.Messages, 4)
		assert.Equal(t, words(10, "newer"), req.Messages[1].Content)
		assert.Contains(t, userPrompt(req), question)
	})

	t.Run("Should keep a question that exactly fills the budget", func(t *testing.T) {
		req, err := newAssembler(t, 5).Assemble(Input{
			Question: question, Intent: domain.IntentComplex, Result: threeChunks(), History: twoTurns(),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, req.DroppedChunks)
		assert.Equal(t, 2, req.DroppedTurns)
		assert.Contains(t, userPrompt(req), question)
	})

	t.Run("Should fail when the question alone exceeds the budget", func(t *testing.T) {
		_, err := newAssembler(t, 4).Assemble(Input{Question: question, Intent: domain.IntentFactual})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrContextOverflow)
		var overflow *domain.ContextOverflowError
		require.True(t, errors.As(err, &overflow))
		assert.Equal(t, 5, overflow.QuestionTokens)
		assert.Equal(t, 4, overflow.Budget)
	})

	t.Run("Should only cap history to the configured turns", func(t *testing.T) {
		a, err := NewAssembler(Options{Budget: 10000, HistoryTurns: 1, Counter: wordCounter{}})
		require.NoError(t, err)
		req, err := a.Assemble(Input{Question: question, Intent: domain.IntentFactual, History: twoTurns()})
		require.NoError(t, err)
		require.Len(t, req.Messages, 4)
		assert.Equal(t, words(10, "newer"), req.Messages[1].Content)
		assert.Zero(t, req.DroppedTurns)
	})
}

func TestAssembler_FewShot(t *testing.T) {
	examples := []Example{
		{Question: "big", Answer: words(500, "long")},
		{Question: "small", Answer: "short answer"},
	}
	t.Run("Should include the first example that fits the budget", func(t *testing.T) {
		a, err := NewAssembler(Options{Budget: 300, Counter: wordCounter{}, FewShot: true, Examples: examples})
		require.NoError(t, err)
		req, err := a.Assemble(Input{Question: question, Intent: domain.IntentComplex, Result: threeChunks()})
		require.NoError(t, err)
		body := userPrompt(req)
		assert.Contains(t, body, "EXAMPLE QUESTION: small")
		assert.NotContains(t, body, "EXAMPLE QUESTION: big")
	})

	t.Run("Should skip examples for other intents", func(t *testing.T) {
		a, err := NewAssembler(Options{Budget: 10000, Counter: wordCounter{}, FewShot: true, Examples: examples})
		require.NoError(t, err)
		req, err := a.Assemble(Input{Question: question, Intent: domain.IntentFactual, Result: threeChunks()})
		require.NoError(t, err)
		assert.NotContains(t, userPrompt(req), "EXAMPLE QUESTION")
	})
}

func TestNewAssembler(t *testing.T) {
	_, err := NewAssembler(Options{Budget: 0})
	assert.Error(t, err)
}
