package session

import "errors"

// errors
var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionCapacityExceeded = errors.New("session connection capacity exceeded")
	ErrServerCapacityExceeded  = errors.New("server connection capacity exceeded")
	ErrConnectionNotFound      = errors.New("connection not found in session")
	ErrConnectionAlreadyMember = errors.New("connection already attached to session")
)
