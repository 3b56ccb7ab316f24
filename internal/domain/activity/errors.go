package activity

import "errors"

// ErrInvalidInput indicates an entry missing its type or outcome.
var ErrInvalidInput = errors.New("invalid activity input")
