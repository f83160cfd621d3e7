package websocket

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/pageloom/server/internal/auth"
	apierrors "codeberg.org/pageloom/server/internal/errors"
	"codeberg.org/pageloom/server/internal/logger"
	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     ws.CheckOrigin,
}

// handles websocket connections for live session synchronization.
//
// Capacity is checked synchronously before the upgrade, so a client over the
// cap is refused at connect time with an explicit reason instead of being
// dropped mid-handshake.
func Handler(hub *ws.Hub, mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params ConnectParams
		if err := c.ShouldBindQuery(&params); err != nil {
			apierrors.BadRequest(c, "invalid parameters", err)
			return
		}

		var userID string
		displayName := params.DisplayName

		// connect tokens are plumbing only; policy is enforced upstream
		if params.Token != "" {
			claims, err := auth.ValidateToken(params.Token)
			if err != nil {
				apierrors.Unauthorized(c, "invalid connect token")
				return
			}

			userID = claims.UserID
			if displayName == "" {
				displayName = claims.DisplayName
			}
		}

		if displayName == "" {
			displayName = "Anonymous"
		}

		if params.SessionID != "" && !apierrors.IsValidUUID(params.SessionID) {
			apierrors.BadRequest(c, "invalid session_id format", nil)
			return
		}

		s := mgr.CreateOrGetSession(params.SessionID)
		connectionID := ws.GenerateConnectionID()

		// attach before upgrading: capacity rejection must not modify the
		// session's connection set or leave a half-open socket behind
		if err := mgr.AttachConnection(s.ID, connectionID); err != nil {
			switch {
			case errors.Is(err, session.ErrSessionCapacityExceeded):
				apierrors.SessionCapacityExceeded(c, "")
			case errors.Is(err, session.ErrServerCapacityExceeded):
				apierrors.ServerAtCapacity(c)
			default:
				apierrors.InternalError(c, "failed to attach connection", err)
			}
			return
		}

		ipAddress := c.ClientIP()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// roll back the attach; the socket never came up
			mgr.DetachConnection(s.ID, connectionID) //nolint:errcheck,gosec // best-effort rollback
			logger.ErrorErr(err, "failed to upgrade connection",
				"session_id", s.ID,
				"ip", ipAddress,
			)
			return
		}

		client := ws.NewClient(connectionID, s.ID, userID, displayName, ipAddress, conn, hub)

		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()

		logger.Info("websocket connection established",
			"connection_id", connectionID,
			"session_id", s.ID,
			"user_id", userID,
			"ip", ipAddress,
		)
	}
}
