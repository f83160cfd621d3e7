package websocket

import (
	"context"
	"encoding/json"

	"codeberg.org/pageloom/server/internal/awareness"
	"codeberg.org/pageloom/server/internal/crdt"
	"codeberg.org/pageloom/server/internal/session"
)

// cross-node republish surface consumed by handlers.
// *fanout.Bridge satisfies it.
type Relayer interface {
	Relay(ctx context.Context, sessionID string, payload []byte)
}

// pending-change surface consumed by handlers.
// *debounce.Coalescer satisfies it.
type ChangeQueue interface {
	QueueChange(sessionID, changeKey string)
}

// change key used for document mutations, distinct from file paths
const documentChangeKey = "document"

// payload of an awareness message: the changed entries
type AwarenessPayload struct {
	Entries []awareness.Entry `json:"entries"`
}

// handles sync1 messages: replies with the delta the client is missing plus
// the server's own vector, the reciprocal request of the handshake
func Sync1Handler(mgr *session.Manager) MessageHandler {
	return func(hub *Hub, client *Client, msg *Message) error {
		payload, err := crdt.DecodeSync1(msg.Payload)
		if err != nil {
			client.SendError("validation_error", "failed to parse sync1 payload", err.Error())
			return err
		}

		s, ok := mgr.GetSession(client.SessionID)
		if !ok {
			client.SendError("session_not_found", "session no longer exists", "")
			return session.ErrSessionNotFound
		}

		reply, err := NewMessage(TypeSync2, client.SessionID, "", s.SyncReply(payload.Vector))
		if err != nil {
			return err
		}

		return client.Send(reply)
	}
}

// handles sync2 messages: merges the batch of updates the server was missing
func Sync2Handler(mgr *session.Manager, relay Relayer, changes ChangeQueue) MessageHandler {
	return func(hub *Hub, client *Client, msg *Message) error {
		payload, err := crdt.DecodeSync2(msg.Payload)
		if err != nil {
			client.SendError("validation_error", "failed to parse sync2 payload", err.Error())
			return err
		}

		s, ok := mgr.GetSession(client.SessionID)
		if !ok {
			client.SendError("session_not_found", "session no longer exists", "")
			return session.ErrSessionNotFound
		}

		applied, err := s.ApplyUpdates(payload.Updates)
		if err != nil {
			client.SendError("validation_error", "failed to merge sync2 updates", err.Error())
			return err
		}

		client.SendAck(msg.MessageID, true)

		if applied == 0 {
			return nil
		}

		// peers need the new updates; echo the batch excluding the origin
		relayMessage(hub, relay, client, msg)
		changes.QueueChange(client.SessionID, documentChangeKey)
		return nil
	}
}

// handles update messages: merges a single document mutation and propagates
// it to peers, then marks the session for debounced reload broadcast
func UpdateHandler(mgr *session.Manager, relay Relayer, changes ChangeQueue) MessageHandler {
	return func(hub *Hub, client *Client, msg *Message) error {
		if !client.allowUpdate() {
			client.SendError("too_many_requests", "too many updates, slow down", "")
			return ErrRateLimitExceeded
		}

		update, err := crdt.DecodeUpdate(msg.Payload)
		if err != nil {
			// structurally invalid: dropped, never merged, never broadcast
			client.SendError("validation_error", "invalid update payload", err.Error())
			return err
		}

		s, ok := mgr.GetSession(client.SessionID)
		if !ok {
			client.SendError("session_not_found", "session no longer exists", "")
			return session.ErrSessionNotFound
		}

		fresh, err := s.ApplyUpdate(update)
		if err != nil {
			client.SendError("validation_error", "update rejected", err.Error())
			return err
		}

		client.SendAck(msg.MessageID, true)

		if !fresh {
			// redelivery: merge was an idempotent no-op, nothing to propagate
			return nil
		}

		relayMessage(hub, relay, client, msg)
		changes.QueueChange(client.SessionID, documentChangeKey)
		return nil
	}
}

// handles awareness messages: last-write-wins presence overwrite, then an
// immediate (non-debounced) broadcast of the change to peers
func AwarenessHandler(mgr *session.Manager, relay Relayer) MessageHandler {
	return func(hub *Hub, client *Client, msg *Message) error {
		if !json.Valid(msg.Payload) {
			client.SendError("validation_error", "invalid awareness payload", "")
			return ErrUnknownType
		}

		s, ok := mgr.GetSession(client.SessionID)
		if !ok {
			client.SendError("session_not_found", "session no longer exists", "")
			return session.ErrSessionNotFound
		}

		entry := s.SetAwareness(client.ID, client.UserID, msg.Payload)

		broadcast, err := NewMessage(TypeAwareness, client.SessionID, client.UserID, AwarenessPayload{
			Entries: []awareness.Entry{entry},
		})
		if err != nil {
			return err
		}

		hub.BroadcastToSession(client.SessionID, broadcast, client.ID)

		if data, err := json.Marshal(broadcast); err == nil {
			relay.Relay(context.Background(), client.SessionID, data)
		}

		return nil
	}
}

// echoes an inbound message to session peers locally (excluding the origin)
// and republishes it for other nodes
func relayMessage(hub *Hub, relay Relayer, client *Client, msg *Message) {
	hub.BroadcastToSession(client.SessionID, msg, client.ID)

	if data, err := json.Marshal(msg); err == nil {
		relay.Relay(context.Background(), client.SessionID, data)
	}
}
