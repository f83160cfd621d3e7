package websocket

import (
	"encoding/json"
	"time"

	"codeberg.org/pageloom/server/internal/logger"
)

func NewHub() *Hub {
	return &Hub{
		sessions:         make(map[string]map[string]*Client),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		Inbound:          make(chan *Message, 256),
		handlers:         make(map[string]MessageHandler),
		shutdown:         make(chan struct{}),
		sessionSequences: make(map[string]uint64),
	}
}

// registers a handler for a specific message type
func (h *Hub) RegisterHandler(messageType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[messageType] = handler
}

// sets callback to be called after a connection registers
func (h *Hub) OnClientRegistered(callback func(client *Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientRegistered = callback
}

// sets callback to be called when a connection is removed for any reason
func (h *Hub) OnClientDisconnect(callback func(client *Client)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientDisconnect = callback
}

// starts the hub's main loop
func (h *Hub) Run() {
	h.running = true
	defer func() {
		h.running = false
	}()

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.Inbound:
			h.dispatchMessage(message)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

// adds a connection to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	if h.sessions[client.SessionID] == nil {
		h.sessions[client.SessionID] = make(map[string]*Client)
	}

	h.sessions[client.SessionID][client.ID] = client
	callback := h.onClientRegistered

	h.mu.Unlock()

	logger.Info("connection registered",
		"connection_id", client.ID,
		"session_id", client.SessionID,
		"user_id", client.UserID,
	)

	if callback != nil {
		go callback(client)
	}
}

// removes a connection from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	callback := h.onClientDisconnect

	sessionClients, exists := h.sessions[client.SessionID]
	if !exists {
		h.mu.Unlock()
		return
	}

	if _, exists := sessionClients[client.ID]; !exists {
		h.mu.Unlock()
		return
	}

	delete(sessionClients, client.ID)
	client.Close()

	if len(sessionClients) == 0 {
		delete(h.sessions, client.SessionID)
		delete(h.sessionSequences, client.SessionID)
	}

	h.mu.Unlock()

	logger.Info("connection unregistered",
		"connection_id", client.ID,
		"session_id", client.SessionID,
	)

	// runs outside the lock; detaches from the session manager and
	// broadcasts the awareness tombstone to remaining peers
	if callback != nil {
		callback(client)
	}
}

// routes an inbound message to its registered handler
func (h *Hub) dispatchMessage(msg *Message) {
	h.mu.RLock()

	sessionClients, exists := h.sessions[msg.SessionID]
	if !exists {
		h.mu.RUnlock()
		logger.Warn("session not found for message",
			"session_id", msg.SessionID,
			"message_type", msg.Type,
		)
		return
	}

	sender, exists := sessionClients[msg.ConnectionID]
	if !exists {
		h.mu.RUnlock()
		logger.Warn("sender not found for message",
			"connection_id", msg.ConnectionID,
			"session_id", msg.SessionID,
			"message_type", msg.Type,
		)
		return
	}

	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !exists {
		// a protocol error affects the sender only; the connection stays open
		sender.SendError("bad_request", "unsupported message type", msg.Type)
		return
	}

	// run handler asynchronously to avoid blocking the hub loop
	go func() {
		if err := handler(h, sender, msg); err != nil {
			logger.ErrorErr(err, "handler error",
				"message_type", msg.Type,
				"connection_id", sender.ID,
				"session_id", msg.SessionID,
			)
		}
	}()
}

// sends a message to all connections in a session, optionally excluding one.
// The envelope is stamped with the session's next sequence number, so clients
// can observe the order this node published in.
func (h *Hub) BroadcastToSession(sessionID string, msg *Message, excludeConnectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, exists := h.sessions[sessionID]
	if !exists {
		return
	}

	// assign sequence number to message
	h.sessionSequences[sessionID]++
	msg.Sequence = h.sessionSequences[sessionID]

	data, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorErr(err, "failed to marshal broadcast", "session_id", sessionID)
		return
	}

	h.deliverToSession(sessionID, sessionClients, data, excludeConnectionID)
}

// delivers a pre-serialized payload to every local connection in a session.
// Satisfies the fan-out bridge's local broadcaster. Relayed payloads keep the
// sequence stamped by the node that published them.
func (h *Hub) BroadcastRaw(sessionID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, exists := h.sessions[sessionID]
	if !exists {
		return
	}

	h.deliverToSession(sessionID, sessionClients, payload, "")
}

// must be called with the hub lock held
func (h *Hub) deliverToSession(sessionID string, sessionClients map[string]*Client, data []byte, excludeConnectionID string) {
	for connectionID, client := range sessionClients {
		if connectionID == excludeConnectionID {
			continue
		}

		if err := client.SendRaw(data); err != nil {
			logger.Warn("failed to deliver broadcast",
				"connection_id", connectionID,
				"session_id", sessionID,
				"error", err,
			)
		}
	}
}

// returns all connections in a session
func (h *Hub) GetSessionClients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessionClients, exists := h.sessions[sessionID]
	if !exists {
		return []*Client{}
	}

	clients := make([]*Client, 0, len(sessionClients))
	for _, client := range sessionClients {
		clients = append(clients, client)
	}

	return clients
}

// returns the number of connections in a session
func (h *Hub) GetClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessionClients, exists := h.sessions[sessionID]
	if !exists {
		return 0
	}

	return len(sessionClients)
}

// returns the number of sessions with live connections
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// closes all connections for a session, e.g. on explicit teardown
func (h *Hub) CloseSession(sessionID string, reason string) {
	h.mu.Lock()

	sessionClients, exists := h.sessions[sessionID]
	if !exists {
		h.mu.Unlock()
		return
	}

	errorMsg, err := NewMessage(TypeError, sessionID, "", ErrorPayload{
		Error:   "session_ended",
		Message: reason,
	})
	if err == nil {
		if data, marshalErr := json.Marshal(errorMsg); marshalErr == nil {
			for _, client := range sessionClients {
				client.SendRaw(data) //nolint:errcheck,gosec // best effort notification
			}
		}
	}

	clients := make([]*Client, 0, len(sessionClients))
	for _, client := range sessionClients {
		clients = append(clients, client)
	}

	delete(h.sessions, sessionID)
	delete(h.sessionSequences, sessionID)

	h.mu.Unlock()

	// give clients a moment to receive the notification
	time.Sleep(100 * time.Millisecond)

	for _, client := range clients {
		client.Close()
	}

	logger.Info("session connections closed",
		"session_id", sessionID,
		"count", len(clients),
		"reason", reason,
	)
}

func (h *Hub) Shutdown() {
	if h.running {
		close(h.shutdown)
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	logger.Info("closing all websocket connections")

	for sessionID, sessionClients := range h.sessions {
		shutdownMsg, err := NewMessage(TypeError, sessionID, "", ErrorPayload{
			Error:   "server_shutdown",
			Message: "server is shutting down",
		})
		if err != nil {
			continue
		}

		data, err := json.Marshal(shutdownMsg)
		if err != nil {
			continue
		}

		for _, client := range sessionClients {
			client.SendRaw(data) //nolint:errcheck,gosec // best effort notification
		}
	}

	h.mu.Unlock()

	// give clients time to receive the shutdown message
	time.Sleep(500 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sessionClients := range h.sessions {
		for _, client := range sessionClients {
			client.Close()
		}
	}

	h.sessions = make(map[string]map[string]*Client)
	h.sessionSequences = make(map[string]uint64)
}
