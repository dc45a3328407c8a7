// Package prompt builds the generation request for a question from its intent,
// the retrieved context and recent conversation history.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/tokens"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const noContextTemplate = "nocontext.tmpl"

// Options configure an Assembler.
type Options struct {
	SystemPrompt string
	// Budget is the token limit for context, history and question combined.
	Budget int
	// HistoryTurns is how many recent turns are offered to the model.
	HistoryTurns int
	Counter      tokens.Counter
	Temperature  float64
	MaxTokens    int
	// FewShot enables a worked example for complex questions.
	FewShot  bool
	Examples []Example
}

// Input is everything needed to assemble one request.
type Input struct {
	Question string
	Intent   domain.QueryIntent
	Result   domain.RetrievalResult
	// History is ordered oldest first.
	History []domain.ConversationTurn
	Model   string
}

// Assembler renders prompts within a fixed context token budget.
type Assembler struct {
	opts Options
	tmpl *template.Template
}

// NewAssembler validates opts and parses the prompt templates. Unset options
// take their package defaults.
func NewAssembler(opts Options) (*Assembler, error) {
	if opts.Budget <= 0 {
		return nil, fmt.Errorf("context budget must be positive, got %d", opts.Budget)
	}
	if opts.Counter == nil {
		opts.Counter = tokens.RuneEstimator{}
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.HistoryTurns < 0 {
		opts.HistoryTurns = 0
	}
	if opts.Examples == nil {
		opts.Examples = DefaultExamples
	}
	tmpl, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Assembler{opts: opts, tmpl: tmpl}, nil
}

type document struct {
	Locator string
	Score   float64
	Text    string
}

type templateData struct {
	Question  string
	Documents []document
	Format    string
	Criteria  []criterion
	Example   *Example
	NoContext string
}

// Assemble renders the request for in. When context, history and question
// exceed the budget, the lowest scoring chunks are dropped first, then the
// oldest history turns. The question is never shortened; if it alone exceeds
// the budget a *domain.ContextOverflowError is returned.
func (a *Assembler) Assemble(in Input) (domain.PromptRequest, error) {
	budget := a.opts.Budget
	questionTokens := a.opts.Counter.Count(in.Question)
	if questionTokens > budget {
		return domain.PromptRequest{}, &domain.ContextOverflowError{QuestionTokens: questionTokens, Budget: budget}
	}

	strat, ok := strategies[in.Intent]
	if !ok {
		strat = strategies[domain.IntentFactual]
	}
	chunks := rankedChunks(in.Result)
	turns := lastTurns(in.History, a.opts.HistoryTurns)

	var droppedChunks, droppedTurns int
	for {
		used, err := a.measure(in.Question, chunks, turns)
		if err != nil {
			return domain.PromptRequest{}, err
		}
		if used <= budget {
			break
		}
		if len(chunks) > 0 {
			chunks = chunks[:len(chunks)-1]
			droppedChunks++
			continue
		}
		if len(turns) > 0 {
			turns = turns[1:]
			droppedTurns++
			continue
		}
		break
	}

	data := templateData{
		Question:  in.Question,
		Documents: documents(chunks),
		Format:    strat.format,
		Criteria:  criteria,
		NoContext: NoContextMessage,
	}
	name := strat.template
	if len(chunks) == 0 {
		name = noContextTemplate
	} else if strat.fewShot && a.opts.FewShot {
		data.Example = a.fittingExample(in.Question, chunks, turns)
	}

	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return domain.PromptRequest{}, fmt.Errorf("render %s: %w", name, err)
	}

	messages := make([]domain.Message, 0, 2+2*len(turns))
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: a.opts.SystemPrompt})
	for _, t := range turns {
		messages = append(messages,
			domain.Message{Role: domain.RoleUser, Content: t.Question},
			domain.Message{Role: domain.RoleAssistant, Content: t.Answer},
		)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: buf.String()})

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].Chunk.ID
	}
	req := domain.PromptRequest{
		Model:         in.Model,
		Messages:      messages,
		Temperature:   a.opts.Temperature,
		MaxTokens:     a.opts.MaxTokens,
		Intent:        in.Intent,
		ChunkIDs:      ids,
		DroppedChunks: droppedChunks,
		DroppedTurns:  droppedTurns,
	}
	req.Tokens = a.opts.Counter.Count(req.Text())
	return req, nil
}

// measure is the budgeted size: rendered context block, history and question.
func (a *Assembler) measure(question string, chunks []domain.ScoredChunk, turns []domain.ConversationTurn) (int, error) {
	c := a.opts.Counter
	n := c.Count(question)
	for _, t := range turns {
		n += c.Count(t.Question) + c.Count(t.Answer)
	}
	if len(chunks) == 0 {
		return n, nil
	}
	block, err := a.renderContext(chunks)
	if err != nil {
		return 0, err
	}
	return n + c.Count(block), nil
}

func (a *Assembler) renderContext(chunks []domain.ScoredChunk) (string, error) {
	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, "context", templateData{Documents: documents(chunks)}); err != nil {
		return "", fmt.Errorf("render context: %w", err)
	}
	return buf.String(), nil
}

// fittingExample returns the first example that keeps the prompt in budget.
func (a *Assembler) fittingExample(question string, chunks []domain.ScoredChunk, turns []domain.ConversationTurn) *Example {
	used, err := a.measure(question, chunks, turns)
	if err != nil {
		return nil
	}
	for i := range a.opts.Examples {
		ex := a.opts.Examples[i]
		cost := a.opts.Counter.Count(ex.Question) + a.opts.Counter.Count(ex.Answer)
		if used+cost <= a.opts.Budget {
			return &ex
		}
	}
	return nil
}

// rankedChunks orders chunks by score descending, chunk id ascending.
func rankedChunks(res domain.RetrievalResult) []domain.ScoredChunk {
	out := append([]domain.ScoredChunk(nil), res.Chunks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Chunk.ID < out[j].Chunk.ID
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func lastTurns(history []domain.ConversationTurn, k int) []domain.ConversationTurn {
	if k <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > k {
		history = history[len(history)-k:]
	}
	return append([]domain.ConversationTurn(nil), history...)
}

func documents(chunks []domain.ScoredChunk) []document {
	out := make([]document, len(chunks))
	for i, sc := range chunks {
		out[i] = document{Locator: sc.Chunk.Locator(), Score: sc.Score, Text: sc.Chunk.Text}
	}
	return out
}
