package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// message type constants for the wire envelope
const (
	// carries a client's state vector to open the sync handshake
	TypeSync1 = "sync1"

	// carries the delta the receiver is missing plus the sender's vector
	TypeSync2 = "sync2"

	// carries a single mergeable document mutation
	TypeUpdate = "update"

	// carries presence changes (cursors, identity)
	TypeAwareness = "awareness"

	// tells preview consumers that content changed
	TypeReload = "reload"

	// confirms acceptance of a message carrying a message_id
	TypeAck = "ack"

	// reports a protocol error to the sender only
	TypeError = "error"
)

// connection timing constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// a peer whose last pong is older than this is treated as dead
	pongWait = 60 * time.Second

	// ping interval; must be less than pongWait
	pingPeriod = 30 * time.Second

	// maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512 KB

	// outbound buffer per connection; overflow drops the connection
	sendBufferSize = 256

	// sustained update rate allowed per connection
	updatesPerSecond = 20
	updateBurst      = 40
)

// errors
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrUnknownType       = errors.New("unknown message type")
)

// the wire envelope shared by all message types
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	MessageID string          `json:"message_id,omitempty"`
	Sequence  uint64          `json:"seq,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`

	// set server-side from the owning connection, never trusted off the wire
	ConnectionID string `json:"-"`
}

// builds an envelope with a marshaled payload
func NewMessage(msgType, sessionID, userID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      msgType,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// decodes the payload into the given value
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// payload of an ack message
type AckPayload struct {
	MessageID string `json:"message_id"`
	Accepted  bool   `json:"accepted"`
}

// payload of a reload message
type ReloadPayload struct {
	ChangeKeys []string `json:"change_keys"`
}

// payload of an error message
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// one transport-level link from a client to the server
type Client struct {
	// unique identifier for this connection
	ID string

	// session this connection belongs to
	SessionID string

	// user ID (empty for anonymous connections)
	UserID string

	// display name for this connection
	DisplayName string

	// IP address of the client
	IPAddress string

	// last observed pong from the peer
	lastPongAt time.Time

	// websocket connection
	conn *websocket.Conn

	// hub reference for message routing
	hub *Hub

	// buffered channel of outbound messages
	send chan []byte

	// bounds the sustained update rate from this connection
	updateLimiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

// maintains the set of live connections and routes messages per session
type Hub struct {
	// registered connections by session ID and connection ID
	sessions map[string]map[string]*Client

	// register requests from connections
	Register chan *Client

	// unregister requests from connections
	Unregister chan *Client

	// inbound messages awaiting dispatch
	Inbound chan *Message

	mu sync.RWMutex

	// message handlers by envelope type
	handlers map[string]MessageHandler

	running  bool
	shutdown chan struct{}

	// per-session counter stamped onto broadcast envelopes
	sessionSequences map[string]uint64

	// callback invoked after a connection registers
	onClientRegistered func(client *Client)

	// callback invoked when a connection is removed for any reason
	onClientDisconnect func(client *Client)
}

// processes a specific message type
type MessageHandler func(hub *Hub, client *Client, msg *Message) error
