package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/pageloom/server/internal/logger"
	"codeberg.org/pageloom/server/internal/metrics"
)

const (
	// upper bound on a cross-node publish before it is logged and skipped
	publishTimeout = 3 * time.Second

	// connection check timeout at startup
	dialTimeout = 5 * time.Second
)

// delivers session broadcasts locally and, when a shared channel is
// configured, relays them to other nodes hosting the same session.
//
// A publish failure on the shared channel never prevents local delivery;
// multi-node degradation is surfaced through logs and metrics only.
type Bridge struct {
	nodeID string
	local  LocalBroadcaster
	client *redis.Client // nil in single-node mode

	mu   sync.Mutex
	subs map[string]*subscription
}

// one shared-channel subscription, held while the node has local
// connections for the session
type subscription struct {
	refs   int
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// creates a bridge without a shared channel (single-node mode)
func NewBridge(nodeID string, local LocalBroadcaster) *Bridge {
	return &Bridge{
		nodeID: nodeID,
		local:  local,
		subs:   make(map[string]*subscription),
	}
}

// creates a bridge connected to a shared redis channel
func NewBridgeWithRedis(nodeID string, local LocalBroadcaster, redisURL string) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis for cross-node fan-out", "node_id", nodeID)

	b := NewBridge(nodeID, local)
	b.client = client
	return b, nil
}

// reports whether cross-node relay is configured
func (b *Bridge) MultiNode() bool {
	return b.client != nil
}

// delivers a payload to every local connection in the session and relays it
// to other nodes when multi-node deployment is configured
func (b *Bridge) Publish(ctx context.Context, sessionID string, payload []byte) {
	// local broadcast always proceeds, even if the shared channel is down
	b.local.BroadcastRaw(sessionID, payload)
	metrics.BroadcastsTotal.Inc()

	if b.client == nil {
		return
	}

	envelope, err := json.Marshal(Envelope{
		SessionID: sessionID,
		Origin:    b.nodeID,
		Payload:   payload,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to encode fan-out envelope", "session_id", sessionID)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.client.Publish(pubCtx, channelFor(sessionID), envelope).Err(); err != nil {
		// degraded mode: local delivery already happened
		metrics.FanoutFailuresTotal.Inc()
		logger.Warn("shared channel publish failed, continuing with local broadcast",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// republishes a payload to other nodes without touching local connections.
// Used when the caller has already delivered locally (e.g. excluding the
// originating connection from its own echo).
func (b *Bridge) Relay(ctx context.Context, sessionID string, payload []byte) {
	if b.client == nil {
		return
	}

	envelope, err := json.Marshal(Envelope{
		SessionID: sessionID,
		Origin:    b.nodeID,
		Payload:   payload,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to encode fan-out envelope", "session_id", sessionID)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.client.Publish(pubCtx, channelFor(sessionID), envelope).Err(); err != nil {
		metrics.FanoutFailuresTotal.Inc()
		logger.Warn("shared channel relay failed",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// subscribes the node to a session's shared channel.
// Reference counted: the manager calls this once per local attach.
func (b *Bridge) Subscribe(sessionID string) {
	if b.client == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[sessionID]; ok {
		sub.refs++
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channelFor(sessionID))

	sub := &subscription{refs: 1, pubsub: pubsub, cancel: cancel}
	b.subs[sessionID] = sub

	go b.relayLoop(ctx, sessionID, pubsub)

	logger.Debug("subscribed to shared channel", "session_id", sessionID)
}

// releases one reference on a session's shared channel subscription,
// closing it when no local connections remain
func (b *Bridge) Unsubscribe(sessionID string) {
	if b.client == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[sessionID]
	if !ok {
		return
	}

	sub.refs--
	if sub.refs > 0 {
		return
	}

	sub.cancel()
	sub.pubsub.Close() //nolint:errcheck,gosec // best-effort cleanup
	delete(b.subs, sessionID)

	logger.Debug("unsubscribed from shared channel", "session_id", sessionID)
}

// drops a session's subscription regardless of reference count.
// Used on session destruction.
func (b *Bridge) DropSession(sessionID string) {
	if b.client == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[sessionID]; ok {
		sub.cancel()
		sub.pubsub.Close() //nolint:errcheck,gosec // best-effort cleanup
		delete(b.subs, sessionID)
	}
}

// receives relayed envelopes from other nodes and replays them locally
func (b *Bridge) relayLoop(ctx context.Context, sessionID string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			envelope, err := b.decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				logger.Warn("dropping malformed fan-out envelope",
					"session_id", sessionID,
					"error", err,
				)
				continue
			}

			if envelope == nil {
				// own relay, already delivered locally at publish time
				continue
			}

			b.local.BroadcastRaw(envelope.SessionID, envelope.Payload)
			metrics.RelayedBroadcastsTotal.Inc()
		}
	}
}

// decodes a relayed envelope; returns nil for the node's own publishes
func (b *Bridge) decodeEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	if envelope.SessionID == "" {
		return nil, fmt.Errorf("envelope missing session id")
	}

	if envelope.Origin == b.nodeID {
		return nil, nil
	}

	return &envelope, nil
}

// closes the shared channel connection and all subscriptions
func (b *Bridge) Close() error {
	if b.client == nil {
		return nil
	}

	b.mu.Lock()
	for id, sub := range b.subs {
		sub.cancel()
		sub.pubsub.Close() //nolint:errcheck,gosec // best-effort cleanup
		delete(b.subs, id)
	}
	b.mu.Unlock()

	return b.client.Close()
}
