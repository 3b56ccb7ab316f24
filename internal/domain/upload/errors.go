package upload

import "errors"

var (
	ErrInvalidFilter = errors.New("invalid upload filter")
)
