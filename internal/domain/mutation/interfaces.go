package mutation

import (
	"context"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/record"
)

// Backend is the REST surface the gateway writes through.
type Backend interface {
	record.Fetcher
	Patch(ctx context.Context, src record.Source, id string, fields map[string]any) (record.Record, error)
	Create(ctx context.Context, src record.Source, rows []record.Record) (IngestResult, error)
	Delete(ctx context.Context, src record.Source, req DeleteRequest) error
	ValidateBatch(ctx context.Context, entries []BatchEntry) (BatchResult, error)
}

// Target is the page a mutation is issued from; it is reloaded after success.
type Target interface {
	Source() record.Source
	Reload(ctx context.Context) error
}

// Confirmer runs the two confirmation steps of a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, consequence string) (bool, error)
	Password(ctx context.Context, prompt string) (string, error)
}

// ActivityLogger records mutation outcomes.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}
