package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/pageloom/server/internal/logger"
	"codeberg.org/pageloom/server/internal/metrics"
)

// manages the session table: creation, membership, capacity and idle expiry.
//
// An explicit registry object rather than process-wide state, so tests can
// instantiate independent managers. Constructed at server start, populated
// on demand, drained on shutdown.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxConnsPerSession int
	maxConnsGlobal     int
	totalConnections   int
	idleTimeout        time.Duration

	bridge  FanoutBridge
	changes ChangeQueue
}

// creates a session manager
func NewManager(maxConnsPerSession, maxConnsGlobal int, idleTimeout time.Duration, bridge FanoutBridge, changes ChangeQueue) *Manager {
	return &Manager{
		sessions:           make(map[string]*Session),
		maxConnsPerSession: maxConnsPerSession,
		maxConnsGlobal:     maxConnsGlobal,
		idleTimeout:        idleTimeout,
		bridge:             bridge,
		changes:            changes,
	}
}

// returns a new random session ID
func GenerateSessionID() string {
	return uuid.NewString()
}

// returns the session with the given id, creating it if absent.
// Idempotent and race-safe: under a concurrent first-access race only one
// caller wins creation and every caller receives the winner's instance.
func (m *Manager) CreateOrGetSession(id string) *Session {
	if id == "" {
		id = GenerateSessionID()
	}

	m.mu.RLock()
	s, exists := m.sessions[id]
	m.mu.RUnlock()

	if exists {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// re-check under the write lock; another caller may have won the race
	if s, exists := m.sessions[id]; exists {
		return s
	}

	s = newSession(id, m.maxConnsPerSession)
	m.sessions[id] = s

	metrics.SessionsActive.Inc()
	logger.Info("session created", "session_id", id)

	return s
}

// returns an existing session
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	return s, exists
}

// adds a connection to a session's membership set.
// Rejects synchronously when the session or global cap is reached; a
// rejected attach never modifies the connection set.
func (m *Manager) AttachConnection(sessionID, connectionID string) error {
	m.mu.Lock()
	s, exists := m.sessions[sessionID]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}

	if m.totalConnections >= m.maxConnsGlobal {
		m.mu.Unlock()
		return ErrServerCapacityExceeded
	}

	// reserve the global slot under the same critical section as the check,
	// so attaches racing at the cap cannot all pass it
	m.totalConnections++
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.totalConnections--
		m.mu.Unlock()
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		release()
		return ErrSessionNotFound
	}

	if _, ok := s.connections[connectionID]; ok {
		s.mu.Unlock()
		release()
		return ErrConnectionAlreadyMember
	}

	if len(s.connections) >= s.maxConnections {
		s.mu.Unlock()
		release()
		return ErrSessionCapacityExceeded
	}

	s.connections[connectionID] = struct{}{}
	s.touch()
	first := len(s.connections) == 1
	s.mu.Unlock()

	metrics.ConnectionsActive.Inc()

	// the bridge refcounts: the subscription lives while local members do
	m.bridge.Subscribe(sessionID)

	if first {
		logger.Debug("first local connection for session", "session_id", sessionID)
	}

	return nil
}

// removes a connection from a session's membership set.
// An emptied session is not destroyed immediately; the idle countdown starts
// so quick reconnects land on the live session.
func (m *Manager) DetachConnection(sessionID, connectionID string) error {
	m.mu.RLock()
	s, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	if _, ok := s.connections[connectionID]; !ok {
		s.mu.Unlock()
		return ErrConnectionNotFound
	}

	delete(s.connections, connectionID)
	s.touch()
	empty := len(s.connections) == 0
	s.mu.Unlock()

	m.mu.Lock()
	m.totalConnections--
	m.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	m.bridge.Unsubscribe(sessionID)

	if empty {
		logger.Info("session has no more connections, idle countdown started",
			"session_id", sessionID,
		)
	}

	return nil
}

// destroys a session: cancels its pending debounce window, drops the shared
// channel subscription and releases all state. Idempotent; destruction is
// terminal, a later reconnect with the same id gets a brand-new session.
func (m *Manager) DestroySession(id string) {
	m.mu.Lock()
	s, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return
	}

	delete(m.sessions, id)
	m.mu.Unlock()

	s.mu.Lock()
	s.destroyed = true
	remaining := len(s.connections)
	s.connections = make(map[string]struct{})
	s.mu.Unlock()

	m.mu.Lock()
	m.totalConnections -= remaining
	m.mu.Unlock()

	m.changes.Cancel(id)
	m.bridge.DropSession(id)

	metrics.SessionsActive.Dec()
	if remaining > 0 {
		metrics.ConnectionsActive.Sub(float64(remaining))
	}

	logger.Info("session destroyed", "session_id", id)
}

// destroys every session whose membership has been empty past the idle
// timeout; returns the ids destroyed
func (m *Manager) ExpireIdleSessions(now time.Time) []string {
	cutoff := now.Add(-m.idleTimeout)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		s.mu.Lock()
		if len(s.connections) == 0 && s.lastActivityAt.Before(cutoff) {
			stale = append(stale, id)
		}
		s.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.DestroySession(id)
		metrics.SessionsExpiredTotal.Inc()
	}

	return stale
}

// runs the periodic idle expiry sweep until the context is cancelled
func (m *Manager) Start(ctx context.Context, sweepInterval time.Duration) {
	logger.Info("starting session expiry sweep",
		"interval", sweepInterval,
		"idle_timeout", m.idleTimeout,
	)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("session expiry sweep stopped")
			return
		case <-ticker.C:
			if expired := m.ExpireIdleSessions(time.Now()); len(expired) > 0 {
				logger.Info("expired idle sessions", "count", len(expired))
			}
		}
	}
}

// destroys all sessions; used on shutdown
func (m *Manager) Drain() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.DestroySession(id)
	}
}

// returns the number of live sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// returns the number of attached connections across all sessions
func (m *Manager) TotalConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalConnections
}
