package tui

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// websocket client for watching a live session
type WSClient struct {
	endpoint  string
	sessionID string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	events chan wsMessage
	closed chan struct{}
}

// creates a new websocket client
func NewWSClient() *WSClient {
	endpoint := os.Getenv("PAGELOOM_WS_ENDPOINT")
	if endpoint == "" {
		endpoint = "ws://localhost:8080/api/v1/ws"
	}

	return &WSClient{
		endpoint: endpoint,
		events:   make(chan wsMessage, 64),
		closed:   make(chan struct{}),
	}
}

// Connect establishes the websocket connection and reads the greeting
func (c *WSClient) Connect(sessionID string) error {
	c.mu.Lock()

	if c.connected {
		c.mu.Unlock()
		return nil
	}

	endpoint := c.endpoint
	if sessionID != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("invalid endpoint: %w", err)
		}

		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn

	// keep the connection alive under the server's heartbeat
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck,gosec
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck,gosec

	// the server opens with a sync1 greeting carrying the session ID
	var greeting wsMessage
	if err := conn.ReadJSON(&greeting); err != nil {
		conn.Close()
		c.mu.Unlock()
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	c.sessionID = greeting.SessionID
	c.connected = true

	go c.readPump()
	go c.pingPump()

	c.mu.Unlock()
	return nil
}

// sends periodic pings to keep the connection alive
func (c *WSClient) pingPump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		<-ticker.C
		c.mu.Lock()

		if !c.connected || c.conn == nil {
			c.mu.Unlock()
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck,gosec
		if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

// continuously reads messages and forwards them to the event channel
func (c *WSClient) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		close(c.closed)
	}()

	for {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck,gosec

		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case c.events <- msg:
		default:
			// monitor fell behind, drop the oldest event
			select {
			case <-c.events:
			default:
			}
			c.events <- msg
		}
	}
}

// returns whether the client is connected
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// closes the websocket connection
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// returns a tea.Cmd that connects to the server
func (c *WSClient) ConnectCmd(sessionID string) tea.Cmd {
	return func() tea.Msg {
		if err := c.Connect(sessionID); err != nil {
			return WSConnectErrorMsg{err: err}
		}

		return WSConnectedMsg{sessionID: c.sessionID}
	}
}

// returns a tea.Cmd that waits for the next server message
func (c *WSClient) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.events:
			return WSEventMsg{msg: msg}
		case <-c.closed:
			return WSClosedMsg{}
		}
	}
}
