package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironmentVariablesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadEnvironmentVariables()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, DefaultMaxConnectionsPerSession, cfg.MaxConnectionsPerSession)
	assert.Equal(t, DefaultMaxConnectionsGlobal, cfg.MaxConnectionsGlobal)
	assert.Equal(t, DefaultSessionIdleTimeout, cfg.SessionIdleTimeout)
	assert.Equal(t, DefaultDebounceWindow, cfg.DebounceWindow)
}

func TestLoadEnvironmentVariablesRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadEnvironmentVariables()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadEnvironmentVariablesOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAX_CONNECTIONS_PER_SESSION", "5")
	t.Setenv("SESSION_IDLE_TIMEOUT", "10m")
	t.Setenv("DEBOUNCE_WINDOW", "250ms")

	cfg, err := LoadEnvironmentVariables()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxConnectionsPerSession)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
}

func TestLoadEnvironmentVariablesRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAX_CONNECTIONS_PER_SESSION", "zero")

	_, err := LoadEnvironmentVariables()
	assert.Error(t, err)
}

func TestLoadEnvironmentVariablesRejectsNonPositive(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAX_CONNECTIONS_GLOBAL", "-1")

	_, err := LoadEnvironmentVariables()
	assert.Error(t, err)
}
