package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/pageloom/server/api/rest/health"
	"codeberg.org/pageloom/server/api/rest/preview"
	"codeberg.org/pageloom/server/api/rest/sessions"
	"codeberg.org/pageloom/server/api/websocket"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(CORSMiddleware())
	router.GET("/health", health.Handler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		sessions.RegisterRoutes(v1, server.manager, server.hub)
		preview.RegisterRoutes(v1, server.manager, server.renderer)
		websocket.RegisterRoutes(v1, server.hub, server.manager)
	}
}

// configures cross-origin access for browser clients
func CORSMiddleware() gin.HandlerFunc {
	allowed := os.Getenv("ALLOWED_ORIGINS")

	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if allowed == "" {
		// development default: permissive, credentials disabled
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = strings.Split(allowed, ",")
	}

	return cors.New(cfg)
}
