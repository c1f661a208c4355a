// Package tui is the terminal chat interface for asking questions about a
// single PDF.
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

	"github.com/dgallion1/pdfqa/internal/qa"
)

// AskFunc answers one question about the loaded document.
type AskFunc func(ctx context.Context, question string) (qa.Answer, error)

type entry struct {
	question string
	answer   qa.Answer
	err      error
}

type answerMsg struct {
	question string
	answer   qa.Answer
	err      error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ask      AskFunc
	ctx      context.Context
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a model. summary is shown under the title.
func New(ctx context.Context, ask AskFunc, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your PDF (exit to quit)"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ask:      ask,
		ctx:      ctx,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Ready. Type a question and press Enter.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.busy = false
		m.entries = append(m.entries, entry{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.answer.ArtifactPath != "" {
			m.status = "Highlighted copy: " + msg.answer.ArtifactPath
		} else {
			m.status = "No supporting passage found to highlight."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			if strings.EqualFold(q, "exit") || strings.EqualFold(q, "quit") {
				return m, tea.Quit
			}
			m.input.Reset()
			m.busy = true
			m.status = fmt.Sprintf("Thinking about %q", q)
			return m, tea.Batch(m.spinner.Tick, m.askCmd(q))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) askCmd(q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.ask(m.ctx, q)
		return answerMsg{question: q, answer: ans, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("PDF Knowledge Assistant")
	summary := dimStyle.Render(m.summary)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		summary + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return dimStyle.Render("No questions yet.")
	}
	width := max(20, m.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(wrap.Render(e.question))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render("Error: " + e.err.Error()))
			b.WriteString("\n")
			continue
		}
		b.WriteString(assistantStyle.Render("Assistant: "))
		b.WriteString(wrap.Render(e.answer.Text))
		b.WriteString("\n")
		if len(e.answer.Pages) > 0 {
			b.WriteString(dimStyle.Render("Found on pages: " + joinPages(e.answer.Pages)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
