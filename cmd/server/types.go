package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/config"
	"codeberg.org/pageloom/server/internal/debounce"
	"codeberg.org/pageloom/server/internal/fanout"
	"codeberg.org/pageloom/server/internal/preview"
	"codeberg.org/pageloom/server/internal/session"
	ws "codeberg.org/pageloom/server/internal/websocket"
)

// holds the server and all its dependencies
type Server struct {
	cfg       *config.Config
	router    *gin.Engine
	hub       *ws.Hub
	manager   *session.Manager
	bridge    *fanout.Bridge
	coalescer *debounce.Coalescer
	renderer  preview.Renderer
	nodeID    string
}
