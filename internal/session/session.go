package session

import (
	"encoding/json"
	"time"

	"codeberg.org/pageloom/server/internal/awareness"
	"codeberg.org/pageloom/server/internal/crdt"
	"codeberg.org/pageloom/server/internal/metrics"
)

// creates an empty session
func newSession(id string, maxConnections int) *Session {
	now := time.Now()

	return &Session{
		ID:             id,
		CreatedAt:      now,
		lastActivityAt: now,
		connections:    make(map[string]struct{}),
		doc:            crdt.NewDocument(),
		presence:       awareness.NewStore(),
		maxConnections: maxConnections,
	}
}

// stamps activity; callers hold s.mu
func (s *Session) touch() {
	s.lastActivityAt = time.Now()
}

// merges an update into the session document.
// Returns true when the update was new, false for an idempotent redelivery.
func (s *Session) ApplyUpdate(u crdt.Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.doc.Apply(u)
	if err != nil {
		metrics.UpdatesRejectedTotal.Inc()
		return false, err
	}

	s.touch()

	if fresh {
		metrics.UpdatesMergedTotal.Inc()
	} else {
		metrics.UpdatesDuplicateTotal.Inc()
	}

	return fresh, nil
}

// merges a batch of peer updates from a sync2 reply
func (s *Session) ApplyUpdates(updates []crdt.Update) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.doc.ApplyAll(updates)
	if applied > 0 {
		s.touch()
	}

	return applied, err
}

// computes the sync2 reply for a connection's sync1 vector
func (s *Session) SyncReply(remote crdt.StateVector) crdt.Sync2Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	return s.doc.SyncReply(remote)
}

// returns the materialized document text
func (s *Session) DocumentText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Text()
}

// returns the next lamport clock for a server-originated mutation
func (s *Session) NextClock() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NextClock()
}

// overwrites a connection's presence state
func (s *Session) SetAwareness(connectionID, userID string, state json.RawMessage) awareness.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	return s.presence.SetLocalState(connectionID, userID, state)
}

// removes a connection's presence state, returning the tombstone to broadcast
func (s *Session) RemoveAwareness(connectionID string) (awareness.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Remove(connectionID)
}

// returns presence entries changed after the given version
func (s *Session) AwarenessDiff(sinceVersion uint64) []awareness.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Diff(sinceVersion)
}

// returns all live presence entries
func (s *Session) AwarenessSnapshot() []awareness.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Snapshot()
}

// returns the administrative view of the session
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		ID:              s.ID,
		CreatedAt:       s.CreatedAt,
		LastActivityAt:  s.lastActivityAt,
		ConnectionCount: len(s.connections),
		UpdateCount:     s.doc.UpdateCount(),
	}
}

// returns the number of attached connections
func (s *Session) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// reports whether a connection is attached
func (s *Session) HasConnection(connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.connections[connectionID]
	return ok
}
