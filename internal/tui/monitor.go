package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxEventLines = 500

func NewMonitor() *MonitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &MonitorModel{spinner: sp}
}

func (m *MonitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *MonitorModel) Update(msg tea.Msg) (*MonitorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 6
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}

		m.viewport.SetContent(m.renderEvents())
		return m, nil

	case WSConnectedMsg:
		m.sessionID = msg.sessionID
		m.connected = true
		m.appendEvent("session", fmt.Sprintf("watching session %s", msg.sessionID))
		return m, nil

	case WSClosedMsg:
		m.connected = false
		m.appendEvent("session", "connection closed by server")
		return m, nil

	case WSEventMsg:
		m.recordEvent(msg.msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

// turns a server message into event log lines and counters
func (m *MonitorModel) recordEvent(msg wsMessage) {
	switch msg.Type {
	case typeSync1:
		m.appendEvent(typeSync1, "peer requested missing updates")

	case typeSync2:
		m.appendEvent(typeSync2, "sync reply with missing updates")

	case typeUpdate:
		m.updates++
		who := msg.UserID
		if who == "" {
			who = "anonymous"
		}
		m.appendEvent(typeUpdate, fmt.Sprintf("document update from %s", who))

	case typeAwareness:
		var payload awarenessPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}

		for _, entry := range payload.Entries {
			if entry.Removed {
				m.peerCount--
				if m.peerCount < 0 {
					m.peerCount = 0
				}
				m.appendEvent(typeAwareness, fmt.Sprintf("peer %s left", shortID(entry.ConnectionID)))
			} else {
				m.peerCount++
				m.appendEvent(typeAwareness, fmt.Sprintf("peer %s updated presence", shortID(entry.ConnectionID)))
			}
		}

	case typeReload:
		var payload reloadPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}

		m.reloads++
		m.lastReload = time.Now()
		m.appendEvent(typeReload, fmt.Sprintf("reload broadcast, %d change key(s): %s",
			len(payload.ChangeKeys), strings.Join(payload.ChangeKeys, ", ")))

	case typeError:
		var payload errorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}

		m.appendEvent(typeError, fmt.Sprintf("%s: %s", payload.Error, payload.Message))

	case typeAck:
		// acks are noise in the monitor
	}
}

func (m *MonitorModel) appendEvent(kind, text string) {
	m.events = append(m.events, EventLine{At: time.Now(), Kind: kind, Text: text})
	if len(m.events) > maxEventLines {
		m.events = m.events[len(m.events)-maxEventLines:]
	}

	if m.ready {
		m.viewport.SetContent(m.renderEvents())
		m.viewport.GotoBottom()
	}
}

func (m *MonitorModel) renderEvents() string {
	var b strings.Builder

	for _, ev := range m.events {
		b.WriteString(eventTimeStyle.Render(ev.At.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(eventKindStyle.Render(ev.Kind))
		b.WriteString(" ")
		b.WriteString(eventTextStyle.Render(ev.Text))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *MonitorModel) View() string {
	var b strings.Builder

	status := statusClosedStyle.Render("disconnected")
	if m.connected {
		status = statusConnectedStyle.Render("connected")
	}

	b.WriteString(headerStyle.Render("  pageloom monitor"))
	b.WriteString("  ")
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  session %s", m.sessionID)))
	b.WriteString("\n")
	stats := fmt.Sprintf("  updates %d  reloads %d  presence events for %d peer(s)",
		m.updates, m.reloads, m.peerCount)
	if !m.lastReload.IsZero() {
		stats += fmt.Sprintf("  last reload %s", m.lastReload.Format("15:04:05"))
	}
	b.WriteString(infoStyle.Render(stats))
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" waiting for terminal size")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ctrl+c to return, q to quit"))

	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
