package preview

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/preview"
	"codeberg.org/pageloom/server/internal/session"
)

func RegisterRoutes(router *gin.RouterGroup, mgr *session.Manager, renderer preview.Renderer) {
	router.GET("/preview/:id", PageHandler(mgr, renderer))
	router.GET("/preview/:id/style.css", StyleHandler(mgr, renderer))
}
