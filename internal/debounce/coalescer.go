package debounce

import (
	"sort"
	"sync"
	"time"
)

// receives the coalesced change keys for one session when a window closes
type FlushFunc func(sessionID string, changeKeys []string)

// coalescing record for one session: the deduplicated pending keys and the
// timer handle that owns the window
type entry struct {
	keys  map[string]struct{}
	timer *time.Timer
}

// batches rapid change events into single notifications per session.
//
// The window is fixed from the first event of a burst: later events join the
// pending set but never reschedule the timer. This bounds notification
// latency at one window even under sustained edits, where reset-on-every-
// event debouncing would starve indefinitely.
type Coalescer struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*entry
	flush   FlushFunc
}

// creates a coalescer that calls flush after each window
func NewCoalescer(window time.Duration, flush FlushFunc) *Coalescer {
	return &Coalescer{
		window:  window,
		entries: make(map[string]*entry),
		flush:   flush,
	}
}

// adds a change key to the session's pending set, opening a window if none
// is running
func (c *Coalescer) QueueChange(sessionID, changeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, pending := c.entries[sessionID]
	if pending {
		e.keys[changeKey] = struct{}{}
		return
	}

	e = &entry{keys: map[string]struct{}{changeKey: {}}}
	e.timer = time.AfterFunc(c.window, func() {
		c.fire(sessionID)
	})

	c.entries[sessionID] = e
}

// takes the pending snapshot for a session and hands it to flush
func (c *Coalescer) fire(sessionID string) {
	c.mu.Lock()

	e, ok := c.entries[sessionID]
	if !ok {
		// session was cancelled while the timer was in flight
		c.mu.Unlock()
		return
	}

	delete(c.entries, sessionID)

	keys := make([]string, 0, len(e.keys))
	for k := range e.keys {
		keys = append(keys, k)
	}

	c.mu.Unlock()

	sort.Strings(keys)
	c.flush(sessionID, keys)
}

// cancels any pending window for a session and discards its keys.
// Called on session destruction so no broadcast fires for a dead session.
func (c *Coalescer) Cancel(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[sessionID]; ok {
		e.timer.Stop()
		delete(c.entries, sessionID)
	}
}

// cancels every pending window
func (c *Coalescer) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, id)
	}
}

// reports whether a window is currently open for the session
func (c *Coalescer) Pending(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[sessionID]
	return ok
}
