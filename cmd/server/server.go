package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codeberg.org/pageloom/server/internal/awareness"
	"codeberg.org/pageloom/server/internal/config"
	"codeberg.org/pageloom/server/internal/crdt"
	"codeberg.org/pageloom/server/internal/debounce"
	"codeberg.org/pageloom/server/internal/fanout"
	"codeberg.org/pageloom/server/internal/logger"
	"codeberg.org/pageloom/server/internal/metrics"
	"codeberg.org/pageloom/server/internal/preview"
	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := ws.NewHub()
	nodeID := uuid.NewString()

	// the bridge runs single-node unless a shared channel is configured
	var bridge *fanout.Bridge
	if cfg.RedisURL != "" {
		b, err := fanout.NewBridgeWithRedis(nodeID, hub, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fan-out bridge: %w", err)
		}
		bridge = b
	} else {
		logger.Info("REDIS_URL not set, running single-node")
		bridge = fanout.NewBridge(nodeID, hub)
	}

	srv := &Server{
		cfg:      cfg,
		hub:      hub,
		bridge:   bridge,
		renderer: preview.PlainRenderer{},
		nodeID:   nodeID,
	}

	// debounced reload broadcasts: one notification per burst per session
	srv.coalescer = debounce.NewCoalescer(cfg.DebounceWindow, srv.flushChanges)

	srv.manager = session.NewManager(
		cfg.MaxConnectionsPerSession,
		cfg.MaxConnectionsGlobal,
		cfg.SessionIdleTimeout,
		bridge,
		srv.coalescer,
	)

	hub.RegisterHandler(ws.TypeSync1, ws.Sync1Handler(srv.manager))
	hub.RegisterHandler(ws.TypeSync2, ws.Sync2Handler(srv.manager, bridge, srv.coalescer))
	hub.RegisterHandler(ws.TypeUpdate, ws.UpdateHandler(srv.manager, bridge, srv.coalescer))
	hub.RegisterHandler(ws.TypeAwareness, ws.AwarenessHandler(srv.manager, bridge))

	hub.OnClientRegistered(srv.greetConnection)
	hub.OnClientDisconnect(srv.dropConnection)

	srv.router = gin.New()
	srv.router.Use(gin.Recovery())
	RegisterRoutes(srv.router, srv)

	return srv, nil
}

// publishes one coalesced reload notification for a session
func (s *Server) flushChanges(sessionID string, changeKeys []string) {
	metrics.CoalescedChangesPerFlush.Observe(float64(len(changeKeys)))

	msg, err := ws.NewMessage(ws.TypeReload, sessionID, "", ws.ReloadPayload{
		ChangeKeys: changeKeys,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to build reload message", "session_id", sessionID)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorErr(err, "failed to marshal reload message", "session_id", sessionID)
		return
	}

	s.bridge.Publish(context.Background(), sessionID, data)
}

// opens the sync handshake and sends the presence snapshot to a new
// connection
func (s *Server) greetConnection(client *ws.Client) {
	sess, ok := s.manager.GetSession(client.SessionID)
	if !ok {
		return
	}

	// server-side sync1: our vector, so the client can send what we miss
	sync1, err := ws.NewMessage(ws.TypeSync1, client.SessionID, "", crdt.Sync1Payload{
		Vector: sess.SyncReply(nil).Vector,
	})
	if err == nil {
		if sendErr := client.Send(sync1); sendErr != nil {
			logger.Warn("failed to send sync1 to new connection",
				"connection_id", client.ID,
				"session_id", client.SessionID,
			)
		}
	}

	// current presence, so the client can draw remote cursors immediately
	if snapshot := sess.AwarenessSnapshot(); len(snapshot) > 0 {
		presence, err := ws.NewMessage(ws.TypeAwareness, client.SessionID, "", ws.AwarenessPayload{
			Entries: snapshot,
		})
		if err == nil {
			client.Send(presence) //nolint:errcheck,gosec // best effort snapshot
		}
	}
}

// detaches a dropped connection and broadcasts its awareness tombstone
func (s *Server) dropConnection(client *ws.Client) {
	sess, ok := s.manager.GetSession(client.SessionID)

	if err := s.manager.DetachConnection(client.SessionID, client.ID); err != nil {
		logger.Debug("detach after disconnect",
			"connection_id", client.ID,
			"session_id", client.SessionID,
			"error", err,
		)
	}

	if !ok {
		return
	}

	// peers must clear the remote cursor promptly; this tombstone is a
	// required side effect of disconnection, not an optional cleanup
	tombstone, existed := sess.RemoveAwareness(client.ID)
	if !existed {
		tombstone = awareness.Entry{
			ConnectionID: client.ID,
			UserID:       client.UserID,
			Removed:      true,
		}
	}

	msg, err := ws.NewMessage(ws.TypeAwareness, client.SessionID, "", ws.AwarenessPayload{
		Entries: []awareness.Entry{tombstone},
	})
	if err != nil {
		return
	}

	s.hub.BroadcastToSession(client.SessionID, msg, client.ID)

	if data, err := json.Marshal(msg); err == nil {
		s.bridge.Relay(context.Background(), client.SessionID, data)
	}
}
