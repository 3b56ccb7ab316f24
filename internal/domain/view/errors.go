package view

import "errors"

var (
	// ErrUnknownFilter indicates a filter name not declared for the page.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnsortableField indicates a field outside the page's sort allow-list.
	ErrUnsortableField = errors.New("field is not sortable")
	// ErrInvalidPageSize indicates a page size below one.
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrUnknownPage indicates a page identity without a layout.
	ErrUnknownPage = errors.New("unknown page")
)
