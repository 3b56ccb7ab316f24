package record

import "context"

// Fetcher retrieves one dataset from the backend.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, q Query) (Dataset, error)
}
