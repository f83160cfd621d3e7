package sessions

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/auth"
	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

func RegisterRoutes(router *gin.RouterGroup, mgr *session.Manager, hub *ws.Hub) {
	router.POST("/sessions", auth.OptionalAuthMiddleware(), CreateSessionHandler(mgr))
	router.GET("/sessions/:id", GetSessionStatusHandler(mgr))
	router.GET("/sessions/:id/connections", ListConnectionsHandler(mgr, hub))
	router.DELETE("/sessions/:id", auth.AuthMiddleware(), DestroySessionHandler(mgr, hub))
}
