package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/pageloom/server/internal/crdt"
)

func testUpdate(origin string, seq, clock uint64, text string) crdt.Update {
	return crdt.Update{
		Origin: origin,
		Seq:    seq,
		Clock:  clock,
		Ops:    []crdt.Op{{Kind: crdt.OpInsert, Pos: 0, Text: text}},
	}
}

func TestSessionApplyUpdate(t *testing.T) {
	s := newSession("session-1", 10)

	fresh, err := s.ApplyUpdate(testUpdate("conn-1", 1, 1, "hello"))
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "hello", s.DocumentText())

	// redelivery is a harmless no-op
	fresh, err = s.ApplyUpdate(testUpdate("conn-1", 1, 1, "hello"))
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestSessionApplyUpdateRejectsInvalid(t *testing.T) {
	s := newSession("session-1", 10)

	_, err := s.ApplyUpdate(crdt.Update{Origin: "", Seq: 1})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Status().UpdateCount)
}

func TestSessionSyncReply(t *testing.T) {
	s := newSession("session-1", 10)

	_, err := s.ApplyUpdates([]crdt.Update{
		testUpdate("conn-1", 1, 1, "a"),
		testUpdate("conn-2", 1, 2, "b"),
	})
	require.NoError(t, err)

	reply := s.SyncReply(crdt.StateVector{"conn-1": 1})
	require.Len(t, reply.Updates, 1)
	assert.Equal(t, "conn-2", reply.Updates[0].Origin)
	assert.Equal(t, uint64(1), reply.Vector["conn-1"])
}

func TestSessionAwareness(t *testing.T) {
	s := newSession("session-1", 10)

	entry := s.SetAwareness("conn-1", "user-1", json.RawMessage(`{"cursor":3}`))
	assert.Equal(t, uint64(1), entry.Version)

	snapshot := s.AwarenessSnapshot()
	require.Len(t, snapshot, 1)

	tombstone, ok := s.RemoveAwareness("conn-1")
	require.True(t, ok)
	assert.True(t, tombstone.Removed)
	assert.Empty(t, s.AwarenessSnapshot())

	// the tombstone still shows up in diffs for catching-up peers
	diff := s.AwarenessDiff(entry.Version)
	require.Len(t, diff, 1)
	assert.True(t, diff[0].Removed)
}

func TestSessionStatus(t *testing.T) {
	s := newSession("session-1", 10)

	_, err := s.ApplyUpdate(testUpdate("conn-1", 1, 1, "x"))
	require.NoError(t, err)

	status := s.Status()
	assert.Equal(t, "session-1", status.ID)
	assert.Equal(t, 1, status.UpdateCount)
	assert.Equal(t, 0, status.ConnectionCount)
	assert.False(t, status.LastActivityAt.IsZero())
}
