package websocket

import (
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"

	"codeberg.org/pageloom/server/internal/logger"
)

func getAllowedWebSocketOrigins() []string {
	if envOrigins := os.Getenv("ALLOWED_ORIGINS"); envOrigins != "" {
		origins := strings.Split(envOrigins, ",")

		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}

		return origins
	}

	return []string{}
}

func CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	env := os.Getenv("ENVIRONMENT")

	if origin == "" {
		// allow no origin header in development
		if env != "production" {
			return true
		}

		logger.Warn("websocket connection with no origin header")
		return false
	}

	if env != "production" {
		return true
	}

	allowedOrigins := getAllowedWebSocketOrigins()

	if len(allowedOrigins) == 0 {
		logger.Warn("websocket origin rejected - ALLOWED_ORIGINS not configured",
			"origin", origin,
		)
		return false
	}

	if slices.Contains(allowedOrigins, origin) {
		return true
	}

	logger.Warn("websocket origin rejected - not in allowed origins",
		"origin", origin,
	)

	return false
}

// returns a new unique connection ID
func GenerateConnectionID() string {
	return uuid.NewString()
}

func (c *Client) logUnexpectedClose(err error) {
	logger.Warn("websocket error",
		"connection_id", c.ID,
		"session_id", c.SessionID,
		"error", err,
	)
}
