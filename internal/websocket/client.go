package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"codeberg.org/pageloom/server/internal/metrics"
)

// creates a new websocket connection wrapper
func NewClient(id, sessionID, userID, displayName, ipAddress string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:            id,
		SessionID:     sessionID,
		UserID:        userID,
		DisplayName:   displayName,
		IPAddress:     ipAddress,
		lastPongAt:    time.Now(),
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, sendBufferSize),
		updateLimiter: rate.NewLimiter(rate.Limit(updatesPerSecond), updateBurst),
	}
}

// reads messages from the websocket connection and forwards them to the hub.
//
// The read deadline doubles as the heartbeat failure detector: a peer that
// stops answering pings trips the deadline within pongWait of its last pong
// and is cleaned up through the same path as a clean close.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: websocket setup
	c.conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPongAt = time.Now()
		c.mu.Unlock()

		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: pong handler
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				// treated as a network failure, not a protocol error
				c.logUnexpectedClose(err)
			}

			break
		}

		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			// protocol error: reply to the sender only, connection stays open
			c.SendError("bad_request", "invalid message format", err.Error())
			continue
		}

		// identity comes from the connection, never from the wire
		msg.SessionID = c.SessionID
		msg.ConnectionID = c.ID
		msg.UserID = c.UserID
		msg.Timestamp = time.Now()

		c.hub.Inbound <- &msg
	}
}

// writes queued messages and heartbeat pings to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket timing

			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck,gosec // G104: close message
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			w.Write(message) //nolint:errcheck,gosec // G104: websocket write

			// drain queued messages into the current frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'}) //nolint:errcheck,gosec // G104: websocket write
				w.Write(<-c.send)     //nolint:errcheck,gosec // G104: websocket write
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket ping timing

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sends a message to the client
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return c.SendRaw(data)
}

// queues pre-serialized bytes for delivery.
// A full buffer drops the connection rather than blocking the broadcaster.
func (c *Client) SendRaw(data []byte) (err error) {
	// recover from panic if channel is closed
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnectionClosed
		}
	}()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	c.mu.RUnlock()

	select {
	case c.send <- data:
		return nil
	default:
		c.sendBufferOverflowError()
		c.Close()
		metrics.ConnectionsDroppedTotal.Inc()
		return ErrConnectionClosed
	}
}

// sends a buffer overflow error directly to the socket, bypassing the full
// channel, before the connection is closed
func (c *Client) sendBufferOverflowError() {
	errorMsg, err := NewMessage(TypeError, c.SessionID, c.UserID, ErrorPayload{
		Error:   "buffer_overflow",
		Message: "message buffer full, connection will be closed",
	})
	if err != nil {
		return
	}

	data, err := json.Marshal(errorMsg)
	if err != nil {
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck,gosec
	c.conn.WriteMessage(websocket.TextMessage, data)         //nolint:errcheck,gosec
}

// sends an error message to this client only
func (c *Client) SendError(code, message, details string) {
	errorMsg, err := NewMessage(TypeError, c.SessionID, c.UserID, ErrorPayload{
		Error:   code,
		Message: message,
		Details: details,
	})
	if err != nil {
		return
	}

	c.Send(errorMsg) //nolint:errcheck,gosec // G104: best effort error notification
}

// sends an ack for a message id
func (c *Client) SendAck(messageID string, accepted bool) {
	if messageID == "" {
		return
	}

	ackMsg, err := NewMessage(TypeAck, c.SessionID, c.UserID, AckPayload{
		MessageID: messageID,
		Accepted:  accepted,
	})
	if err != nil {
		return
	}

	ackMsg.MessageID = messageID
	c.Send(ackMsg) //nolint:errcheck,gosec // G104: best effort ack
}

// closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// checks if the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// returns the last observed pong time
func (c *Client) LastPongAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPongAt
}

// reports whether this connection may submit another update
func (c *Client) allowUpdate() bool {
	return c.updateLimiter.Allow()
}
