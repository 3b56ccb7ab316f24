package upload

import "context"

// Lister reads upload history from the backend.
type Lister interface {
	Uploads(ctx context.Context, filter Filter) (Page, error)
}
