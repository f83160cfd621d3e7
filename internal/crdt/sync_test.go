package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncReplyExchange(t *testing.T) {
	// two replicas with partially overlapping histories
	a := NewDocument()
	_, err := a.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 0, "shared"),
		insertUpdate("conn-1", 2, 2, 6, " a-only"),
	})
	require.NoError(t, err)

	b := NewDocument()
	_, err = b.ApplyAll([]Update{
		insertUpdate("conn-1", 1, 1, 0, "shared"),
		insertUpdate("conn-2", 1, 3, 6, " b-only"),
	})
	require.NoError(t, err)

	// a answers b's vector with what b is missing, plus a's own vector
	replyToB := a.SyncReply(b.StateVector())
	require.Len(t, replyToB.Updates, 1)
	assert.Equal(t, uint64(2), replyToB.Updates[0].Seq)

	_, err = b.ApplyAll(replyToB.Updates)
	require.NoError(t, err)

	// b answers a's vector in turn, completing the handshake
	replyToA := b.SyncReply(replyToB.Vector)
	_, err = a.ApplyAll(replyToA.Updates)
	require.NoError(t, err)

	assert.Equal(t, a.Text(), b.Text())
	assert.Equal(t, a.StateVector(), b.StateVector())
}

func TestDecodeUpdate(t *testing.T) {
	raw, err := json.Marshal(insertUpdate("conn-1", 1, 1, 0, "hi"))
	require.NoError(t, err)

	u, err := DecodeUpdate(raw)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", u.Origin)
	assert.Equal(t, uint64(1), u.Seq)
}

func TestDecodeUpdateRejectsInvalid(t *testing.T) {
	_, err := DecodeUpdate([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeUpdate([]byte(`{"origin":"","seq":1,"ops":[{"kind":"insert","text":"x"}]}`))
	assert.ErrorIs(t, err, ErrEmptyOrigin)

	_, err = DecodeUpdate([]byte(`{"origin":"c","seq":1,"ops":[]}`))
	assert.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestDecodeSync1DefaultsVector(t *testing.T) {
	p, err := DecodeSync1([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, p.Vector)
	assert.Empty(t, p.Vector)

	p, err = DecodeSync1([]byte(`{"vector":{"conn-1":3}}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Vector["conn-1"])
}

func TestDecodeSync2ValidatesUpdates(t *testing.T) {
	payload := Sync2Payload{
		Updates: []Update{insertUpdate("conn-1", 1, 1, 0, "x")},
		Vector:  StateVector{"conn-1": 1},
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	decoded, err := DecodeSync2(raw)
	require.NoError(t, err)
	assert.Len(t, decoded.Updates, 1)

	// one bad update poisons the whole payload
	payload.Updates = append(payload.Updates, Update{Origin: "", Seq: 2})
	raw, err = json.Marshal(payload)
	require.NoError(t, err)

	_, err = DecodeSync2(raw)
	assert.ErrorIs(t, err, ErrEmptyOrigin)
}
