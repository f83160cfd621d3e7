package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("7b1e815e-8681-4a52-9aa4-53e79ad70a2b"))
	assert.True(t, IsValidUUID("7B1E815E-8681-4A52-9AA4-53E79AD70A2B"))

	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID("7b1e815e86814a529aa453e79ad70a2b"))
	assert.False(t, IsValidUUID("7b1e815e-8681-4a52-9aa4-53e79ad70a2b-extra"))
}

func TestSanitizeErrorDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	assert.Equal(t, "redis: dial tcp refused", sanitizeError(fmt.Errorf("redis: dial tcp refused")))
	assert.Empty(t, sanitizeError(nil))
}

func TestSanitizeErrorProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	assert.Equal(t, "connection error occurred", sanitizeError(fmt.Errorf("redis: dial tcp refused")))
	assert.Equal(t, "request timed out", sanitizeError(fmt.Errorf("context deadline timeout")))
	assert.Equal(t, "resource not found", sanitizeError(fmt.Errorf("session not found")))
	assert.Equal(t, "an error occurred", sanitizeError(fmt.Errorf("secret internal detail")))
}
