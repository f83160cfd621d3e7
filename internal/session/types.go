package session

import (
	"context"
	"sync"
	"time"

	"codeberg.org/pageloom/server/internal/awareness"
	"codeberg.org/pageloom/server/internal/crdt"
)

// cross-node broadcast surface consumed by the manager.
// *fanout.Bridge satisfies it; tests substitute a recorder.
type FanoutBridge interface {
	Publish(ctx context.Context, sessionID string, payload []byte)
	Subscribe(sessionID string)
	Unsubscribe(sessionID string)
	DropSession(sessionID string)
}

// pending-change surface consumed by the manager on destruction.
// *debounce.Coalescer satisfies it.
type ChangeQueue interface {
	QueueChange(sessionID, changeKey string)
	Cancel(sessionID string)
}

// one shared editing/preview context.
//
// Document and awareness state are owned exclusively by the session and
// mutated only through its methods; mu is the session's single-owner
// serialization point, so merges never race on the in-memory representation.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	lastActivityAt time.Time
	connections    map[string]struct{}
	doc            *crdt.Document
	presence       *awareness.Store
	maxConnections int
	destroyed      bool
}

// point-in-time administrative view of a session
type Status struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	ConnectionCount int       `json:"connection_count"`
	UpdateCount     int       `json:"update_count"`
}
