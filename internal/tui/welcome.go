package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// sent when the user submits a session ID to watch
type WatchSessionMsg struct {
	sessionID string
}

func NewWelcome() *Welcome {
	input := textinput.New()
	input.Placeholder = "session ID (empty for a new session)"
	input.CharLimit = 36
	input.Width = 40
	input.Focus()

	return &Welcome{input: input}
}

func (w *Welcome) Update(msg tea.Msg) (*Welcome, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			sessionID := strings.TrimSpace(w.input.Value())
			return w, func() tea.Msg {
				return WatchSessionMsg{sessionID: sessionID}
			}
		}
	}

	var cmd tea.Cmd
	w.input, cmd = w.input.Update(msg)

	return w, cmd
}

func (w *Welcome) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(logo))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("live session monitor"))
	b.WriteString("\n\n  ")
	b.WriteString(promptStyle.Render("watch session: "))
	b.WriteString(w.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  enter to connect, ctrl+c to quit"))
	b.WriteString("\n")

	return b.String()
}
