package sessions

import "time"

// response body for session creation
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// response body for session status
type StatusResponse struct {
	SessionID       string    `json:"session_id"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	ConnectionCount int       `json:"connection_count"`
	UpdateCount     int       `json:"update_count"`
	DocumentLength  int       `json:"document_length"`
}

// one live connection in a session
type ConnectionResponse struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	DisplayName  string    `json:"display_name"`
	LastPongAt   time.Time `json:"last_pong_at"`
}

// response body for the connection listing
type ListConnectionsResponse struct {
	Connections []ConnectionResponse `json:"connections"`
}
