package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/emolyzer/internal/models"
)

// RunChat opens the interactive chat for a session and blocks until the user leaves
func RunChat(ctx context.Context, turner Turner, sess *models.Session, history []models.Message) error {
	model := NewChatModel(ctx, turner, sess, history)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	// Handle exit messages after TUI closes
	if m, ok := finalModel.(ChatModel); ok {
		switch {
		case m.Final() != nil && m.Status() == models.StatusEscalated:
			fmt.Printf("⚠️ Session %s closed and flagged for follow-up (severity %d)\n", sess.ID, m.Final().SeverityScore)
		case m.Final() != nil:
			fmt.Printf("✅ Session %s closed\n", sess.ID)
		case !m.Status().IsTerminal():
			fmt.Printf("💬 Session %s is still open. Resume with: emolyzer chat %s\n", sess.ID, sess.ID)
		}
	}
	return nil
}
