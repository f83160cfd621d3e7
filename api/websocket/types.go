package websocket

// query parameters accepted on websocket connect
type ConnectParams struct {
	// session to join; empty creates a new session
	SessionID string `form:"session_id"`

	// optional connect token identifying the user
	Token string `form:"token"`

	// display name for anonymous connections
	DisplayName string `form:"display_name"`
}
