package session

import "errors"

var (
	// ErrNameTaken means the display name is in use somewhere in the registry.
	ErrNameTaken = errors.New("display name already in use")
	// ErrUnknownSession means no active session has the requested code.
	ErrUnknownSession = errors.New("unknown session code")
	// ErrSessionFull means the roster already holds the configured player count.
	ErrSessionFull = errors.New("session is full")
	// ErrSessionStarted means the session stopped accepting joins.
	ErrSessionStarted = errors.New("session already started")
)
