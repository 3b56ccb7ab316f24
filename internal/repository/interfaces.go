package repository

import (
	"context"
	"time"

	"github.com/ganot/inscritos/internal/domain/activity"
)

// ActivityRepository manages the local mutation log.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// ViewState is the persisted filter, sort and paging state of one page.
type ViewState struct {
	PageID        string
	Filters       []byte // JSON {values, toggles}
	SortField     string
	SortDirection string
	PageIndex     int
	PageSize      int
	UpdatedAt     time.Time
}

// ViewStateRepository manages per-page view state.
type ViewStateRepository interface {
	Get(ctx context.Context, pageID string) (*ViewState, error)
	Save(ctx context.Context, state *ViewState) error
	Delete(ctx context.Context, pageID string) error
	List(ctx context.Context) ([]ViewState, error)
}
