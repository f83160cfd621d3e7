package awareness

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// ephemeral presence state for one connection.
//
// The State blob (cursor, display name, color) is opaque to the server and
// last-write-wins: presence is not collaborative content, so no merge is
// needed. Removed entries are tombstones kept so peers can clear remote
// cursors promptly.
type Entry struct {
	ConnectionID string          `json:"connection_id"`
	UserID       string          `json:"user_id,omitempty"`
	State        json.RawMessage `json:"state,omitempty"`
	Version      uint64          `json:"version"`
	Removed      bool            `json:"removed,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// tracks presence entries for one session
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	version uint64
}

// creates an empty awareness store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
	}
}

// overwrites a connection's presence state, last write wins
func (s *Store) SetLocalState(connectionID, userID string, state json.RawMessage) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++

	entry := &Entry{
		ConnectionID: connectionID,
		UserID:       userID,
		State:        state,
		Version:      s.version,
		UpdatedAt:    time.Now(),
	}

	s.entries[connectionID] = entry
	return *entry
}

// marks a connection's state removed and returns the tombstone entry.
//
// Emitting the tombstone is a required side effect of disconnection; peers
// rely on it to drop remote cursors without waiting for a timeout.
func (s *Store) Remove(connectionID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[connectionID]
	if !ok {
		return Entry{}, false
	}

	s.version++

	tombstone := &Entry{
		ConnectionID: connectionID,
		UserID:       existing.UserID,
		Version:      s.version,
		Removed:      true,
		UpdatedAt:    time.Now(),
	}

	s.entries[connectionID] = tombstone
	return *tombstone, true
}

// returns every entry changed after the given version, oldest first
func (s *Store) Diff(sinceVersion uint64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var changed []Entry

	for _, entry := range s.entries {
		if entry.Version > sinceVersion {
			changed = append(changed, *entry)
		}
	}

	// entries carry strictly increasing versions, sort for a stable payload
	sort.Slice(changed, func(i, j int) bool {
		return changed[i].Version < changed[j].Version
	})

	return changed
}

// returns the current version counter
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// returns all live (non-removed) entries
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]Entry, 0, len(s.entries))

	for _, entry := range s.entries {
		if !entry.Removed {
			live = append(live, *entry)
		}
	}

	return live
}

// drops tombstones older than the given age
func (s *Store) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	for id, entry := range s.entries {
		if entry.Removed && entry.UpdatedAt.Before(cutoff) {
			delete(s.entries, id)
			pruned++
		}
	}

	return pruned
}
