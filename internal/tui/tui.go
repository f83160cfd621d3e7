package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func NewApp() *Model {
	return &Model{
		state:   StateWelcome,
		welcome: NewWelcome(),
		monitor: NewMonitor(),
		client:  NewWSClient(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// only quit from welcome screen, not from the monitor
		if msg.String() == "ctrl+c" && m.state == StateWelcome {
			return m, tea.Quit
		}

		// any other key dismisses a connect error
		if m.err != nil && m.state == StateWelcome {
			m.err = nil
		}

		// in the monitor, ctrl+c disconnects and returns to welcome
		if msg.String() == "ctrl+c" && m.state != StateWelcome {
			m.client.Close()
			m.client = NewWSClient()
			m.monitor = NewMonitor()
			m.state = StateWelcome
			return m, nil
		}

		if msg.String() == "q" && m.state == StateMonitor {
			m.client.Close()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.monitor, _ = m.monitor.Update(msg)

	case ErrorMsg:
		m.err = msg.err
		return m, nil

	case WatchSessionMsg:
		m.state = StateConnecting
		return m, tea.Batch(m.monitor.Init(), m.client.ConnectCmd(msg.sessionID))

	case WSConnectErrorMsg:
		m.err = msg.err
		m.state = StateWelcome
		return m, nil

	case WSConnectedMsg:
		m.state = StateMonitor
		m.monitor, _ = m.monitor.Update(msg)
		return m, m.client.WaitForEvent()

	case WSEventMsg:
		m.monitor, _ = m.monitor.Update(msg)
		return m, m.client.WaitForEvent()

	case WSClosedMsg:
		m.monitor, _ = m.monitor.Update(msg)
		return m, nil
	}

	switch m.state {
	case StateWelcome:
		return m.updateWelcome(msg)

	case StateConnecting, StateMonitor:
		return m.updateMonitor(msg)

	default:
		return m, nil
	}
}

func (m *Model) View() string {
	if m.err != nil {
		return errorView(m.err)
	}

	switch m.state {
	case StateWelcome:
		return m.welcome.View()

	case StateConnecting:
		return "\n  connecting...\n"

	case StateMonitor:
		return m.monitor.View()

	default:
		return "Unknown state"
	}
}

func (m *Model) updateWelcome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.welcome, cmd = m.welcome.Update(msg)

	return m, cmd
}

func (m *Model) updateMonitor(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.monitor, cmd = m.monitor.Update(msg)

	return m, cmd
}

func errorView(err error) string {
	return errorStyle.Render(fmt.Sprintf("\n  Error: %v\n\n  Press Ctrl+C to exit\n", err))
}
