package record

import "errors"

var (
	// ErrUnknownSource indicates a source name that is not registered.
	ErrUnknownSource = errors.New("unknown source")
	// ErrMissingColumn indicates a required column is absent from a response.
	ErrMissingColumn = errors.New("required column missing")
	// ErrMissingKey indicates a row without its identifying field.
	ErrMissingKey = errors.New("record without identifying field")
	// ErrDuplicateKey indicates two rows share an identifying value.
	ErrDuplicateKey = errors.New("duplicate record key")
	// ErrSuperseded indicates a load result was discarded because a newer load started.
	ErrSuperseded = errors.New("load superseded by a newer load")
	// ErrClosed indicates the owning page has gone away.
	ErrClosed = errors.New("record store closed")
	// ErrRecordNotFound indicates no record carries the requested key.
	ErrRecordNotFound = errors.New("record not found")
)
