package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// records bridge calls for assertions
type fakeBridge struct {
	mu           sync.Mutex
	subscribes   []string
	unsubscribes []string
	dropped      []string
}

func (f *fakeBridge) Publish(_ context.Context, _ string, _ []byte) {}

func (f *fakeBridge) Subscribe(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, sessionID)
}

func (f *fakeBridge) Unsubscribe(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes = append(f.unsubscribes, sessionID)
}

func (f *fakeBridge) DropSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, sessionID)
}

// records cancelled debounce windows
type fakeChanges struct {
	mu        sync.Mutex
	cancelled []string
}

func (f *fakeChanges) QueueChange(_, _ string) {}

func (f *fakeChanges) Cancel(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, sessionID)
}

func newTestManager(perSession, global int, idle time.Duration) (*Manager, *fakeBridge, *fakeChanges) {
	bridge := &fakeBridge{}
	changes := &fakeChanges{}
	return NewManager(perSession, global, idle, bridge, changes), bridge, changes
}

func TestCreateOrGetSessionIsIdempotent(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)

	first := mgr.CreateOrGetSession("session-1")
	second := mgr.CreateOrGetSession("session-1")

	assert.Same(t, first, second)
	assert.Equal(t, 1, mgr.SessionCount())
}

func TestCreateOrGetSessionGeneratesID(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)

	s := mgr.CreateOrGetSession("")
	assert.NotEmpty(t, s.ID)

	got, ok := mgr.GetSession(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestCreateOrGetSessionConcurrent(t *testing.T) {
	mgr, _, _ := newTestManager(10, 1000, time.Minute)

	const goroutines = 50
	results := make([]*Session, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = mgr.CreateOrGetSession("contended")
		}(i)
	}
	wg.Wait()

	// every caller must receive the same instance
	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, mgr.SessionCount())
}

func TestAttachConnection(t *testing.T) {
	mgr, bridge, _ := newTestManager(10, 100, time.Minute)
	s := mgr.CreateOrGetSession("session-1")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	assert.True(t, s.HasConnection("conn-1"))
	assert.Equal(t, 1, mgr.TotalConnections())
	assert.Equal(t, []string{"session-1"}, bridge.subscribes)
}

func TestAttachConnectionUnknownSession(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)

	err := mgr.AttachConnection("no-such-session", "conn-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAttachConnectionDuplicate(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("session-1")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	err := mgr.AttachConnection("session-1", "conn-1")
	assert.ErrorIs(t, err, ErrConnectionAlreadyMember)
	assert.Equal(t, 1, mgr.TotalConnections())
}

func TestAttachConnectionSessionCapacity(t *testing.T) {
	mgr, _, _ := newTestManager(2, 100, time.Minute)
	s := mgr.CreateOrGetSession("session-1")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	require.NoError(t, mgr.AttachConnection("session-1", "conn-2"))

	// a rejected attach never modifies the connection set
	err := mgr.AttachConnection("session-1", "conn-3")
	assert.ErrorIs(t, err, ErrSessionCapacityExceeded)
	assert.Equal(t, 2, s.ConnectionCount())
	assert.False(t, s.HasConnection("conn-3"))
}

func TestAttachConnectionGlobalCapacity(t *testing.T) {
	mgr, _, _ := newTestManager(10, 2, time.Minute)
	mgr.CreateOrGetSession("session-1")
	mgr.CreateOrGetSession("session-2")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	require.NoError(t, mgr.AttachConnection("session-2", "conn-2"))

	err := mgr.AttachConnection("session-2", "conn-3")
	assert.ErrorIs(t, err, ErrServerCapacityExceeded)
	assert.Equal(t, 2, mgr.TotalConnections())
}

func TestAttachConnectionGlobalCapacityConcurrent(t *testing.T) {
	mgr, _, _ := newTestManager(100, 5, time.Minute)
	s := mgr.CreateOrGetSession("session-1")

	var wg sync.WaitGroup
	var attached atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := mgr.AttachConnection(s.ID, fmt.Sprintf("conn-%d", n)); err == nil {
				attached.Add(1)
			}
		}(i)
	}
	wg.Wait()

	// racing attaches at the cap cannot oversubscribe the global limit
	assert.Equal(t, int32(5), attached.Load())
	assert.Equal(t, 5, mgr.TotalConnections())
}

func TestAttachConnectionRejectionReleasesGlobalSlot(t *testing.T) {
	mgr, _, _ := newTestManager(1, 10, time.Minute)
	mgr.CreateOrGetSession("session-1")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))

	// session-cap and duplicate rejections must give back the reserved slot
	assert.ErrorIs(t, mgr.AttachConnection("session-1", "conn-2"), ErrSessionCapacityExceeded)
	assert.ErrorIs(t, mgr.AttachConnection("session-1", "conn-1"), ErrConnectionAlreadyMember)
	assert.Equal(t, 1, mgr.TotalConnections())
}

func TestDetachConnection(t *testing.T) {
	mgr, bridge, _ := newTestManager(10, 100, time.Minute)
	s := mgr.CreateOrGetSession("session-1")

	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	require.NoError(t, mgr.DetachConnection("session-1", "conn-1"))

	assert.False(t, s.HasConnection("conn-1"))
	assert.Equal(t, 0, mgr.TotalConnections())
	assert.Equal(t, []string{"session-1"}, bridge.unsubscribes)

	// the emptied session survives for quick reconnects
	_, ok := mgr.GetSession("session-1")
	assert.True(t, ok)
}

func TestDetachConnectionUnknown(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("session-1")

	assert.ErrorIs(t, mgr.DetachConnection("session-1", "never-attached"), ErrConnectionNotFound)
	assert.ErrorIs(t, mgr.DetachConnection("no-such-session", "conn-1"), ErrSessionNotFound)
}

func TestDestroySession(t *testing.T) {
	mgr, bridge, changes := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("session-1")
	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))

	mgr.DestroySession("session-1")

	_, ok := mgr.GetSession("session-1")
	assert.False(t, ok)
	assert.Equal(t, 0, mgr.TotalConnections())
	assert.Equal(t, []string{"session-1"}, changes.cancelled)
	assert.Equal(t, []string{"session-1"}, bridge.dropped)

	// idempotent
	mgr.DestroySession("session-1")
	assert.Len(t, changes.cancelled, 1)
}

func TestDestroyedSessionRejectsAttach(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	s := mgr.CreateOrGetSession("session-1")
	mgr.DestroySession("session-1")

	// the stale pointer is terminal; a fresh create gets a new instance
	fresh := mgr.CreateOrGetSession("session-1")
	assert.NotSame(t, s, fresh)
}

func TestExpireIdleSessions(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("idle-session")
	mgr.CreateOrGetSession("busy-session")
	require.NoError(t, mgr.AttachConnection("busy-session", "conn-1"))

	// nothing has been idle past the timeout yet
	assert.Empty(t, mgr.ExpireIdleSessions(time.Now()))

	// from the future, the empty session is past its idle timeout but the
	// session with a live connection is untouchable
	expired := mgr.ExpireIdleSessions(time.Now().Add(2 * time.Minute))
	assert.Equal(t, []string{"idle-session"}, expired)

	_, ok := mgr.GetSession("busy-session")
	assert.True(t, ok)
	assert.Equal(t, 1, mgr.SessionCount())
}

func TestExpiryCountdownRestartsOnActivity(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("session-1")

	// attach and detach stamps fresh activity
	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))
	require.NoError(t, mgr.DetachConnection("session-1", "conn-1"))

	assert.Empty(t, mgr.ExpireIdleSessions(time.Now().Add(30*time.Second)))
	assert.Len(t, mgr.ExpireIdleSessions(time.Now().Add(2*time.Minute)), 1)
}

func TestDrain(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Minute)
	mgr.CreateOrGetSession("session-1")
	mgr.CreateOrGetSession("session-2")
	require.NoError(t, mgr.AttachConnection("session-1", "conn-1"))

	mgr.Drain()

	assert.Equal(t, 0, mgr.SessionCount())
	assert.Equal(t, 0, mgr.TotalConnections())
}

func TestManagerStartSweep(t *testing.T) {
	mgr, _, _ := newTestManager(10, 100, time.Millisecond)
	mgr.CreateOrGetSession("session-1")

	ctx, cancel := context.WithCancel(context.Background())
	go mgr.Start(ctx, 10*time.Millisecond)

	// the sweeper destroys the idle session on its own
	time.Sleep(100 * time.Millisecond)
	cancel()

	assert.Equal(t, 0, mgr.SessionCount())
}
