package config

import "time"

// holds all server configuration loaded from the environment
type Config struct {
	// port the HTTP server listens on
	Port string

	// redis connection URL for cross-node fan-out; empty runs single-node
	RedisURL string

	// secret for validating connect tokens
	JWTSecret string

	// "development" or "production"
	Environment string

	// maximum connections allowed in a single session
	MaxConnectionsPerSession int

	// maximum connections allowed across all sessions
	MaxConnectionsGlobal int

	// how long an empty session survives before it is destroyed
	SessionIdleTimeout time.Duration

	// how often the expiry sweep runs
	ExpirySweepInterval time.Duration

	// coalescing window for change notifications
	DebounceWindow time.Duration
}

// default limits and timings
const (
	DefaultPort                     = "8080"
	DefaultMaxConnectionsPerSession = 100
	DefaultMaxConnectionsGlobal     = 10000
	DefaultSessionIdleTimeout       = 30 * time.Minute
	DefaultExpirySweepInterval      = time.Minute
	DefaultDebounceWindow           = 100 * time.Millisecond
)
