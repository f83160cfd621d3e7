package websocket

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

func RegisterRoutes(router *gin.RouterGroup, hub *ws.Hub, mgr *session.Manager) {
	router.GET("/ws", Handler(hub, mgr))
}
