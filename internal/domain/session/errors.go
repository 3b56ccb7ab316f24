package session

import "errors"

var (
	// ErrSessionNotFound indicates no session is open for the page.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotLoaded indicates an operation that needs loaded data ran before
	// the first successful load.
	ErrNotLoaded = errors.New("page not loaded")
)
