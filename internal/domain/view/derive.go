package view

import (
	"sync"

	"github.com/ganot/inscritos/internal/domain/record"
)

// Result is the derived view of one page.
type Result struct {
	// Rows is the full filtered and sorted list.
	Rows []record.Record
	Page Page
}

// Derive filters, sorts and slices rows. It is pure: the same inputs always
// produce the same result and rows is never modified.
func (l Layout) Derive(rows []record.Record, st State) Result {
	filtered := l.Filters.Filter(rows, st.Filters)
	sorted := l.Sort.Sort(filtered, st.Sort)
	return Result{
		Rows: sorted,
		Page: Paginate(sorted, st.Page.Index, st.Page.Size),
	}
}

type deriveKey struct {
	version uint64
	filters string
	sort    SortState
}

// Deriver memoizes Derive on the store version, filter state and sort state.
// Paging a cached list only re-slices it.
type Deriver struct {
	layout Layout

	mu     sync.Mutex
	key    deriveKey
	rows   []record.Record
	cached bool
}

// NewDeriver creates a memoizing deriver for l.
func NewDeriver(l Layout) *Deriver {
	return &Deriver{layout: l}
}

// Derive returns the view of snap under st.
func (d *Deriver) Derive(snap record.Snapshot, st State) Result {
	key := deriveKey{version: snap.Version, filters: st.Filters.Key(), sort: st.Sort}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cached || d.key != key {
		filtered := d.layout.Filters.Filter(d.layout.RowsOf(snap.Dataset), st.Filters)
		d.rows = d.layout.Sort.Sort(filtered, st.Sort)
		d.key = key
		d.cached = true
	}
	return Result{
		Rows: d.rows,
		Page: Paginate(d.rows, st.Page.Index, st.Page.Size),
	}
}
