package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/emolyzer/internal/conversation"
	"github.com/balkashynov/emolyzer/internal/models"
)

const thinkingLabel = "thinking about what you said..."

// Turner is the conversation surface the chat drives
type Turner interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (conversation.TurnResult, error)
}

// turnDoneMsg carries the result of one HandleTurn call back into the loop
type turnDoneMsg struct {
	result conversation.TurnResult
	err    error
}

type chatLine struct {
	sender models.Sender
	text   string
}

// ChatModel is the employee-facing chat window for one session
type ChatModel struct {
	ctx       context.Context
	turner    Turner
	sessionID string
	title     string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	shimmer  *shimmer

	lines       []chatLine
	waiting     bool
	status      models.SessionStatus
	final       *conversation.FinalizeResult
	unpersisted bool
	notice      string // validation or transport problem from the last turn

	width  int
	height int
	ready  bool
	quit   bool
}

// NewChatModel builds a chat for sess seeded with the existing transcript
func NewChatModel(ctx context.Context, turner Turner, sess *models.Session, history []models.Message) ChatModel {
	input := textinput.New()
	input.Placeholder = "Type your reply and press Enter"
	input.CharLimit = 1000
	input.Width = 60
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
	input.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))

	m := ChatModel{
		ctx:       ctx,
		turner:    turner,
		sessionID: sess.ID,
		title:     "Wellbeing check-in",
		input:     input,
		viewport:  viewport.New(80, 20),
		spinner:   spin,
		shimmer:   newShimmer(),
		status:    sess.Status,
	}
	if sess.Title != nil && sess.Status.IsTerminal() {
		m.title = *sess.Title
	}
	for _, msg := range history {
		m.lines = append(m.lines, chatLine{sender: msg.Sender, text: msg.Text})
	}
	m.refresh()
	return m
}

// Init starts the cursor blinking
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 8
		if m.viewport.Height < 3 {
			m.viewport.Height = 3
		}
		m.input.Width = msg.Width - 8
		if m.input.Width < 20 {
			m.input.Width = 20
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit

		case "enter":
			if m.status.IsTerminal() {
				m.quit = true
				return m, tea.Quit
			}
			if m.waiting {
				return m, nil
			}
			return m.submit()

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case turnDoneMsg:
		return m.handleTurnDone(msg), nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case shimmerTickMsg:
		if !m.waiting {
			return m, nil
		}
		m.shimmer.advance(len([]rune(thinkingLabel)))
		return m, m.shimmer.tick()
	}

	if m.waiting || m.status.IsTerminal() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the current input as one turn
func (m ChatModel) submit() (ChatModel, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.notice = ""
	if text != "" {
		m.lines = append(m.lines, chatLine{sender: models.SenderUser, text: text})
	}
	m.input.Reset()
	m.waiting = true
	m.shimmer.reset()
	m.refresh()

	return m, tea.Batch(m.sendTurn(text), m.spinner.Tick, m.shimmer.tick())
}

func (m ChatModel) sendTurn(text string) tea.Cmd {
	ctx, turner, id := m.ctx, m.turner, m.sessionID
	return func() tea.Msg {
		result, err := turner.HandleTurn(ctx, id, text)
		return turnDoneMsg{result: result, err: err}
	}
}

func (m ChatModel) handleTurnDone(msg turnDoneMsg) ChatModel {
	m.waiting = false

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, conversation.ErrInputValidation):
			// The user line never made it into the conversation
			if n := len(m.lines); n > 0 && m.lines[n-1].sender == models.SenderUser {
				m.lines = m.lines[:n-1]
			}
			m.notice = "Please type a reply before pressing Enter."
		case errors.Is(msg.err, conversation.ErrSessionClosed):
			m.status = models.StatusCompleted
			m.notice = "This conversation has already ended."
		default:
			m.notice = fmt.Sprintf("Something went wrong: %v", msg.err)
		}
		m.refresh()
		return m
	}

	m.lines = append(m.lines, chatLine{sender: models.SenderAssistant, text: msg.result.AssistantText})
	m.status = msg.result.Status
	m.unpersisted = m.unpersisted || msg.result.Unpersisted
	if msg.result.Final != nil {
		m.final = msg.result.Final
		if m.final.Title != "" {
			m.title = m.final.Title
		}
	}
	m.refresh()
	return m
}

// refresh re-renders the transcript into the viewport and scrolls to the end
func (m *ChatModel) refresh() {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	assistantName := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAssistant))
	userName := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorUser))
	body := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).Width(width)

	var b strings.Builder
	for i, line := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		name := assistantName.Render("companion")
		if line.sender == models.SenderUser {
			name = userName.Render("you")
		}
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(body.Render(line.text))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the chat
func (m ChatModel) View() string {
	if m.quit {
		return ""
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright))
	frameStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(0, 1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText))

	var b strings.Builder
	b.WriteString(headerStyle.Render("💬 " + m.title))
	b.WriteString("\n")
	b.WriteString(frameStyle.Render(m.viewport.View()))
	b.WriteString("\n")

	switch {
	case m.waiting:
		b.WriteString(m.spinner.View() + " " + m.shimmer.render(thinkingLabel))
	case m.status.IsTerminal():
		b.WriteString(m.renderOutcome())
	default:
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("❌ " + m.notice))
		b.WriteString("\n")
	}
	if m.unpersisted {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render("⚠️ Some messages could not be saved"))
		b.WriteString("\n")
	}

	help := "Enter: send • PgUp/PgDn: scroll • Esc: leave"
	if m.status.IsTerminal() {
		help = "Enter/Esc: close"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m ChatModel) renderOutcome() string {
	if m.status == models.StatusEscalated {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).
			Render("Conversation ended. Someone from the people team will follow up with you.")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).
		Render("Conversation ended. Thank you for checking in.")
}

// Status reports the session status as last seen by the chat
func (m ChatModel) Status() models.SessionStatus {
	return m.status
}

// Final is the finalization outcome if the chat closed the session
func (m ChatModel) Final() *conversation.FinalizeResult {
	return m.final
}
