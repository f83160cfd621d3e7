package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/pageloom/server/internal/config"
	"codeberg.org/pageloom/server/internal/logger"
)

// @title Pageloom API
// @version 1.0
// @description Live session synchronization and preview-broadcast server
// @description
// @description Features:
// @description - Real-time collaborative document editing via WebSockets
// @description - Conflict-free merging of concurrent updates
// @description - Presence and cursor awareness across connections
// @description - Debounced reload broadcasts to preview clients
// @description - Cross-node fan-out over a shared pub/sub channel

// @contact.name API Support
// @contact.url https://codeberg.org/pageloom/server

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authenticated requests. Format: Bearer {token}

func main() {
	logger.Info("starting pageloom server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// create server with all dependencies
	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port, "node_id", srv.nodeID)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// start websocket hub
	go srv.hub.Run()

	// start idle session sweeper with cancellable context
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go srv.manager.Start(sweepCtx, cfg.ExpirySweepInterval)

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// stop the sweeper
	sweepCancel()

	logger.Info("shutting down server")

	// notify websocket clients and close connections first
	srv.hub.Shutdown()

	// discard pending reload timers, then tear down remaining sessions
	srv.coalescer.CancelAll()
	srv.manager.Drain()

	// graceful shutdown with 10 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// close the fan-out bridge last so relayed teardown messages drain
	srv.bridge.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
}
