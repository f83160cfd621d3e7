package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// records local broadcasts for assertions
type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

type broadcastCall struct {
	sessionID string
	payload   []byte
}

func (f *fakeBroadcaster) BroadcastRaw(sessionID string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{sessionID: sessionID, payload: payload})
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestBridgeSingleNodePublish(t *testing.T) {
	local := &fakeBroadcaster{}
	bridge := NewBridge("node-1", local)

	assert.False(t, bridge.MultiNode())

	bridge.Publish(context.Background(), "session-1", []byte(`{"type":"reload"}`))

	require.Equal(t, 1, local.count())
	assert.Equal(t, "session-1", local.calls[0].sessionID)
}

func TestBridgeSingleNodeRelayIsNoOp(t *testing.T) {
	local := &fakeBroadcaster{}
	bridge := NewBridge("node-1", local)

	// relay targets remote nodes only; without a shared channel there is
	// nothing to do and local connections must not see a second copy
	bridge.Relay(context.Background(), "session-1", []byte(`{"type":"update"}`))

	assert.Equal(t, 0, local.count())
}

func TestBridgeSingleNodeSubscribeIsNoOp(t *testing.T) {
	local := &fakeBroadcaster{}
	bridge := NewBridge("node-1", local)

	bridge.Subscribe("session-1")
	bridge.Unsubscribe("session-1")
	bridge.DropSession("session-1")

	assert.NoError(t, bridge.Close())
}

func TestBridgeDecodeEnvelope(t *testing.T) {
	bridge := NewBridge("node-1", &fakeBroadcaster{})

	raw, err := json.Marshal(Envelope{
		SessionID: "session-1",
		Origin:    "node-2",
		Payload:   []byte(`{"type":"reload"}`),
	})
	require.NoError(t, err)

	envelope, err := bridge.decodeEnvelope(raw)
	require.NoError(t, err)
	require.NotNil(t, envelope)
	assert.Equal(t, "session-1", envelope.SessionID)
	assert.Equal(t, "node-2", envelope.Origin)
}

func TestBridgeDecodeEnvelopeSkipsOwnOrigin(t *testing.T) {
	bridge := NewBridge("node-1", &fakeBroadcaster{})

	raw, err := json.Marshal(Envelope{
		SessionID: "session-1",
		Origin:    "node-1",
		Payload:   []byte(`{}`),
	})
	require.NoError(t, err)

	// the node's own publishes were already delivered locally
	envelope, err := bridge.decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Nil(t, envelope)
}

func TestBridgeDecodeEnvelopeRejectsMalformed(t *testing.T) {
	bridge := NewBridge("node-1", &fakeBroadcaster{})

	_, err := bridge.decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = bridge.decodeEnvelope([]byte(`{"origin":"node-2","payload":"e30="}`))
	assert.Error(t, err)
}

func TestBridgeInvalidRedisURL(t *testing.T) {
	_, err := NewBridgeWithRedis("node-1", &fakeBroadcaster{}, "not-a-url")
	assert.Error(t, err)
}
