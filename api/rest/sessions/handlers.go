package sessions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/errors"
	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

// @Summary Create a session
// @Description Allocates a new empty session and returns its id
// @Tags sessions
// @Produce json
// @Success 201 {object} CreateSessionResponse
// @Router /sessions [post]
func CreateSessionHandler(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := mgr.CreateOrGetSession("")

		c.JSON(http.StatusCreated, CreateSessionResponse{
			SessionID: s.ID,
		})
	}
}

// @Summary Get session status
// @Description Returns connection count and activity for a session
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /sessions/{id} [get]
func GetSessionStatusHandler(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		s, exists := mgr.GetSession(id)
		if !exists {
			errors.SessionNotFound(c)
			return
		}

		status := s.Status()

		c.JSON(http.StatusOK, StatusResponse{
			SessionID:       status.ID,
			CreatedAt:       status.CreatedAt,
			LastActivityAt:  status.LastActivityAt,
			ConnectionCount: status.ConnectionCount,
			UpdateCount:     status.UpdateCount,
			DocumentLength:  len(s.DocumentText()),
		})
	}
}

// @Summary List session connections
// @Description Returns the live connections in a session with their last
// observed heartbeat
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} ListConnectionsResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /sessions/{id}/connections [get]
func ListConnectionsHandler(mgr *session.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		if _, exists := mgr.GetSession(id); !exists {
			errors.SessionNotFound(c)
			return
		}

		clients := hub.GetSessionClients(id)
		connections := make([]ConnectionResponse, 0, len(clients))

		for _, client := range clients {
			// a connection mid-teardown is no longer part of the session
			if client.IsClosed() {
				continue
			}

			connections = append(connections, ConnectionResponse{
				ConnectionID: client.ID,
				UserID:       client.UserID,
				DisplayName:  client.DisplayName,
				LastPongAt:   client.LastPongAt(),
			})
		}

		c.JSON(http.StatusOK, ListConnectionsResponse{Connections: connections})
	}
}

// @Summary Destroy a session
// @Description Tears down a session, closing all its connections. Idempotent.
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Success 204
// @Router /sessions/{id} [delete]
func DestroySessionHandler(mgr *session.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := errors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		// idempotent: destroying an absent session is not an error
		hub.CloseSession(id, "session destroyed by administrator")
		mgr.DestroySession(id)

		c.Status(http.StatusNoContent)
	}
}
