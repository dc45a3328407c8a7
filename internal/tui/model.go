// Package tui is the terminal chat screen over a generation session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/session"
)

// ChatPort is the TUI-facing subset of the generation session.
type ChatPort interface {
	Ask(ctx context.Context, question string) (*session.Stream, error)
	Reset() error
	SwitchModel(ctx context.Context, name string) error
	AvailableModels(ctx context.Context) ([]string, error)
	History() []domain.ConversationTurn
	Model() string
}

// Overview describes the loaded knowledge base.
type Overview struct {
	Chunks  int
	Sources []string
	Summary string
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleSystem
	roleError
)

type entry struct {
	role role
	text string
}

type (
	streamStartedMsg struct{ stream *session.Stream }
	fragmentMsg      struct{ text string }
	streamEndedMsg   struct{}
	errMsg           struct{ err error }
	noticeMsg        struct{ text string }
)

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	overview Overview

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	transcript []entry
	answer     string
	stream     *session.Stream
	busy       bool
	status     string
	ready      bool
	quitting   bool

	lastQuestion string
	lastResult   domain.RetrievalResult
}

// New creates a chat screen. ctx bounds every request the screen makes.
func New(ctx context.Context, chat ChatPort, overview Overview) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the lectures, or /help"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		ctx:      ctx,
		chat:     chat,
		overview: overview,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ready. Type a question and press Enter.",
	}
	m.transcript = append(m.transcript, entry{roleSystem, m.renderOverview()})
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			if m.stream != nil {
				m.stream.Cancel()
			}
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.stream != nil {
				m.stream.Cancel()
				m.status = "Cancelling..."
			}
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			next, cmd := m.submit(q)
			if next.busy {
				return next, tea.Batch(cmd, next.spinner.Tick)
			}
			return next, cmd
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case streamStartedMsg:
		m.stream = msg.stream
		m.lastResult = msg.stream.Result()
		req := msg.stream.Request()
		m.status = fmt.Sprintf("Answering (%s, %d sources) · Esc to cancel", msg.stream.Intent(), len(req.ChunkIDs))
		return m, nextFragment(msg.stream)
	case fragmentMsg:
		m.answer += msg.text
		m.refresh()
		return m, nextFragment(m.stream)
	case streamEndedMsg:
		return m.endStream(), nil
	case errMsg:
		m.busy = false
		m.stream = nil
		m.transcript = append(m.transcript, entry{roleError, describeError(msg.err)})
		m.status = "Ready."
		m.refresh()
		return m, nil
	case noticeMsg:
		m.busy = false
		m.transcript = append(m.transcript, entry{roleSystem, msg.text})
		m.status = "Ready."
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit routes a line to a slash command or starts a new turn.
func (m Model) submit(line string) (Model, tea.Cmd) {
	if strings.HasPrefix(line, "/") {
		return m.runCommand(parseCommand(line))
	}
	m.transcript = append(m.transcript, entry{roleUser, line})
	m.lastQuestion = line
	m.busy = true
	m.status = "Thinking..."
	m.answer = ""
	m.refresh()
	ctx, chat := m.ctx, m.chat
	return m, func() tea.Msg {
		st, err := chat.Ask(ctx, line)
		if err != nil {
			return errMsg{err}
		}
		return streamStartedMsg{st}
	}
}

func nextFragment(st *session.Stream) tea.Cmd {
	return func() tea.Msg {
		text, ok := st.Next()
		if !ok {
			return streamEndedMsg{}
		}
		return fragmentMsg{text}
	}
}

func (m Model) endStream() Model {
	st := m.stream
	m.stream = nil
	m.busy = false
	answer := m.answer
	m.answer = ""
	if st == nil {
		return m
	}
	switch err := st.Err(); {
	case err == nil:
		m.transcript = append(m.transcript, entry{roleAssistant, answer})
		if src := renderSources(st.Result()); src != "" {
			m.transcript = append(m.transcript, entry{roleSystem, src})
		}
		m.status = "Ready."
	case isCancel(err):
		m.transcript = append(m.transcript, entry{roleSystem, "Answer cancelled; nothing was added to the history."})
		m.status = "Cancelled."
	default:
		m.transcript = append(m.transcript, entry{roleError, describeError(err)})
		m.status = "Ready."
	}
	m.refresh()
	return m
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("CTSE Lecture Assistant") + "  " + mutedStyle.Render("model: "+m.chat.Model())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m *Model) refresh() {
	width := m.viewport.Width
	var sb strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderEntry(e, width))
	}
	if m.busy && m.answer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(renderEntry(entry{roleAssistant, m.answer}, width))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func renderEntry(e entry, width int) string {
	style := lipgloss.NewStyle()
	if width > 0 {
		style = style.Width(width)
	}
	switch e.role {
	case roleUser:
		return userStyle.Render("You") + "\n" + style.Render(e.text)
	case roleAssistant:
		return assistantStyle.Render("Assistant") + "\n" + style.Render(e.text)
	case roleError:
		return errorStyle.Render("Error: " + e.text)
	default:
		return mutedStyle.Render(style.Render(e.text))
	}
}

func (m Model) renderOverview() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Knowledge base: %d chunks from %d files.", m.overview.Chunks, len(m.overview.Sources))
	if len(m.overview.Sources) > 0 {
		sb.WriteString("\nSources: " + strings.Join(m.overview.Sources, ", "))
	}
	if m.overview.Summary != "" {
		sb.WriteString("\nOverview: " + m.overview.Summary)
	}
	sb.WriteString("\nType /help for commands.")
	return sb.String()
}

func renderSources(res domain.RetrievalResult) string {
	if res.Empty() {
		return ""
	}
	lines := make([]string, 0, res.Len()+1)
	lines = append(lines, "Sources:")
	for i, sc := range res.Chunks {
		lines = append(lines, fmt.Sprintf("[%d] %s · %s %.2f", i+1, sc.Chunk.Locator(), sc.Method, sc.Score))
	}
	return strings.Join(lines, "\n")
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
