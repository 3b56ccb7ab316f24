package mutation

import "errors"

var (
	// ErrInvalidInput indicates a write rejected before any request was sent.
	ErrInvalidInput = errors.New("invalid mutation input")
	// ErrInvalidRUT indicates a RUN whose check digit does not match.
	ErrInvalidRUT = errors.New("invalid RUN check digit")
	// ErrBusy indicates the same mutation is already running for the target.
	ErrBusy = errors.New("mutation already in progress")
	// ErrCancelled indicates the user declined a confirmation step.
	ErrCancelled = errors.New("operation cancelled")
	// ErrReloadFailed indicates the write succeeded but the refresh did not.
	ErrReloadFailed = errors.New("reload after mutation failed")
	// ErrNoCorte indicates there is no corte to validate against.
	ErrNoCorte = errors.New("no corte available")
)
