package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ragchitchat/internal/domain"
)

type command struct {
	name string
	arg  string
}

func parseCommand(line string) command {
	line = strings.TrimSpace(strings.TrimPrefix(line, "/"))
	name, arg, _ := strings.Cut(line, " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

const helpText = `Commands:
  /help           show this help
  /models         list the models available on the Ollama server
  /model <name>   answer with another model from the next question on
  /reset          clear the conversation history
  /history        show the conversation so far
  /sources        show the passages behind the last answer
  /info           show the knowledge base overview
  /quit           leave
Press Esc while an answer streams to cancel it.`

func (m Model) runCommand(c command) (Model, tea.Cmd) {
	ctx, chat := m.ctx, m.chat
	switch c.name {
	case "help":
		m.transcript = append(m.transcript, entry{roleSystem, helpText})
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "reset":
		if err := chat.Reset(); err != nil {
			m.transcript = append(m.transcript, entry{roleError, describeError(err)})
			break
		}
		m.lastResult = domain.RetrievalResult{}
		m.transcript = append(m.transcript, entry{roleSystem, "Conversation history cleared."})
	case "history":
		m.transcript = append(m.transcript, entry{roleSystem, renderHistory(chat.History())})
	case "info":
		m.transcript = append(m.transcript, entry{roleSystem, m.renderOverview()})
	case "sources":
		text := renderExcerpts(m.lastResult, m.lastQuestion)
		m.transcript = append(m.transcript, entry{roleSystem, text})
	case "models":
		m.busy = true
		m.status = "Listing models..."
		m.refresh()
		current := chat.Model()
		return m, func() tea.Msg {
			models, err := chat.AvailableModels(ctx)
			if err != nil {
				return errMsg{err}
			}
			return noticeMsg{renderModels(models, current)}
		}
	case "model":
		if c.arg == "" {
			m.transcript = append(m.transcript, entry{roleError, "usage: /model <name>"})
			break
		}
		m.busy = true
		m.status = "Switching model..."
		m.refresh()
		return m, func() tea.Msg {
			if err := chat.SwitchModel(ctx, c.arg); err != nil {
				return errMsg{err}
			}
			return noticeMsg{fmt.Sprintf("Now answering with %s.", chat.Model())}
		}
	default:
		m.transcript = append(m.transcript, entry{roleError, fmt.Sprintf("unknown command /%s; type /help", c.name)})
	}
	m.refresh()
	return m, nil
}

func renderModels(models []string, current string) string {
	if len(models) == 0 {
		return "No models are installed on the Ollama server."
	}
	lines := []string{"Available models:"}
	for _, name := range models {
		marker := "  "
		if name == current {
			marker = "* "
		}
		lines = append(lines, marker+name)
	}
	return strings.Join(lines, "\n")
}

func renderHistory(turns []domain.ConversationTurn) string {
	if len(turns) == 0 {
		return "No conversation history yet."
	}
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. [%s] %s (%s, %d sources)", i+1, t.Timestamp.Format("15:04"), t.Question, t.Intent, len(t.ChunkIDs))
	}
	return sb.String()
}

// describeError turns pipeline errors into messages for the transcript.
func describeError(err error) string {
	var notFound *domain.ModelNotFoundError
	switch {
	case errors.As(err, &notFound):
		if len(notFound.Available) == 0 {
			return fmt.Sprintf("Model %q not found and no models are installed.", notFound.Name)
		}
		return fmt.Sprintf("Model %q not found. Available: %s", notFound.Name, strings.Join(notFound.Available, ", "))
	case errors.Is(err, domain.ErrEmptyIndex):
		return "No knowledge base loaded. Add lecture files to the data directory and run ingest."
	case errors.Is(err, domain.ErrBusy):
		return "Still answering the previous question; press Esc to cancel it."
	default:
		return err.Error()
	}
}

func isCancel(err error) bool { return errors.Is(err, context.Canceled) }
