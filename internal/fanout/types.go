package fanout

import "encoding/json"

// delivers a payload to every local connection in a session
type LocalBroadcaster interface {
	BroadcastRaw(sessionID string, payload []byte)
}

// wire format relayed over the shared channel between nodes
type Envelope struct {
	SessionID string          `json:"session_id"`
	Origin    string          `json:"origin"` // publishing node id, used to skip own relays
	Payload   json.RawMessage `json:"payload"`
}

// prefix for per-session pub/sub channels
const channelPrefix = "pageloom:session:"

// returns the shared channel name for a session
func channelFor(sessionID string) string {
	return channelPrefix + sessionID
}
