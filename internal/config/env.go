package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have a .env file
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = DefaultPort
	}

	cfg := &Config{
		Port:                     port,
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                jwtSecret,
		Environment:              environment,
		MaxConnectionsPerSession: DefaultMaxConnectionsPerSession,
		MaxConnectionsGlobal:     DefaultMaxConnectionsGlobal,
		SessionIdleTimeout:       DefaultSessionIdleTimeout,
		ExpirySweepInterval:      DefaultExpirySweepInterval,
		DebounceWindow:           DefaultDebounceWindow,
	}

	var err error

	if cfg.MaxConnectionsPerSession, err = intFromEnv("MAX_CONNECTIONS_PER_SESSION", cfg.MaxConnectionsPerSession); err != nil {
		return nil, err
	}

	if cfg.MaxConnectionsGlobal, err = intFromEnv("MAX_CONNECTIONS_GLOBAL", cfg.MaxConnectionsGlobal); err != nil {
		return nil, err
	}

	if cfg.SessionIdleTimeout, err = durationFromEnv("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout); err != nil {
		return nil, err
	}

	if cfg.DebounceWindow, err = durationFromEnv("DEBOUNCE_WINDOW", cfg.DebounceWindow); err != nil {
		return nil, err
	}

	return cfg, nil
}

// reads an integer environment variable with a fallback
func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}

	return v, nil
}

// reads a duration environment variable with a fallback
func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}

	return v, nil
}
