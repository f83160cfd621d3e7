package tui

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

// represents the current state of the TUI
type AppState int

const (
	StateWelcome AppState = iota
	StateConnecting
	StateMonitor
)

// main TUI application model
type Model struct {
	state   AppState
	width   int
	height  int
	err     error
	welcome *Welcome
	monitor *MonitorModel
	client  *WSClient
}

// sent when an error occurs
type ErrorMsg struct {
	err error
}

// welcome screen model
type Welcome struct {
	input textinput.Model
}

// live session monitor
type MonitorModel struct {
	viewport   viewport.Model
	spinner    spinner.Model
	width      int
	height     int
	ready      bool
	sessionID  string
	connected  bool
	events     []EventLine
	peerCount  int
	updates    int
	reloads    int
	lastReload time.Time
}

// one rendered line in the event log
type EventLine struct {
	At   time.Time
	Kind string
	Text string
}

// wire envelope mirrored from the server protocol
type wsMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	MessageID string          `json:"message_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	typeSync1     = "sync1"
	typeSync2     = "sync2"
	typeUpdate    = "update"
	typeAwareness = "awareness"
	typeReload    = "reload"
	typeAck       = "ack"
	typeError     = "error"
)

type awarenessEntry struct {
	ConnectionID string          `json:"connection_id"`
	UserID       string          `json:"user_id,omitempty"`
	State        json.RawMessage `json:"state,omitempty"`
	Removed      bool            `json:"removed,omitempty"`
}

type awarenessPayload struct {
	Entries []awarenessEntry `json:"entries"`
}

type reloadPayload struct {
	ChangeKeys []string `json:"change_keys"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// sent when the websocket connection is established
type WSConnectedMsg struct {
	sessionID string
}

// sent when the websocket connection fails
type WSConnectErrorMsg struct {
	err error
}

// sent for each message received from the server
type WSEventMsg struct {
	msg wsMessage
}

// sent when the server closes the connection
type WSClosedMsg struct{}
