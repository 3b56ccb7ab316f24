package view

import (
	"fmt"

	"github.com/ganot/inscritos/internal/domain/record"
)

// Layout is everything a page declares about its table: where rows come
// from, which filters and sorts it offers and its default page size.
type Layout struct {
	ID       string
	Title    string
	Source   record.Source
	Filters  FilterSpec
	Sort     SortSpec
	PageSize int
	// TabFilter names the Tab or Enum filter rendered as tabs, with its values.
	TabFilter string
	Tabs      []string
	// Columns shown by the terminal table and local exports.
	Columns []string
	// Rows selects the table rows from a loaded dataset; defaults to its rows.
	Rows func(record.Dataset) []record.Record
}

// RowsOf returns the table rows of ds for this page.
func (l Layout) RowsOf(ds record.Dataset) []record.Record {
	if l.Rows != nil {
		return l.Rows(ds)
	}
	return ds.Rows
}

// State is the page-scoped filter, sort and page position.
type State struct {
	Filters FilterState `json:"filters"`
	Sort    SortState   `json:"sort"`
	Page    PageState   `json:"page"`
}

// NewState returns the defaults for l.
func (l Layout) NewState() State {
	return State{
		Sort: l.Sort.Default,
		Page: PageState{Index: 1, Size: l.pageSize()},
	}
}

func (l Layout) pageSize() int {
	if l.PageSize > 0 {
		return l.PageSize
	}
	return DefaultPageSize
}

// SetFilter changes one filter input. A change resets the page to 1.
func (l Layout) SetFilter(st State, name, value string) (State, error) {
	next, err := l.Filters.Set(st.Filters, name, value)
	if err != nil {
		return st, err
	}
	return l.WithFilters(st, next), nil
}

// WithFilters replaces the whole filter state, resetting the page when it differs.
func (l Layout) WithFilters(st State, filters FilterState) State {
	if !st.Filters.Equal(filters) {
		st.Page.Index = 1
	}
	st.Filters = filters
	return st
}

// ToggleSort clicks a column header. Unknown fields leave st unchanged.
func (l Layout) ToggleSort(st State, field string) (State, error) {
	next, err := l.Sort.Toggle(st.Sort, field)
	if err != nil {
		return st, err
	}
	st.Sort = next
	st.Page.Index = 1
	return st, nil
}

// SetSort applies an explicit sort, resetting the page when it changes.
func (l Layout) SetSort(st State, field string, dir Direction) (State, error) {
	next, err := l.Sort.Set(st.Sort, field, dir)
	if err != nil {
		return st, err
	}
	if next != st.Sort {
		st.Page.Index = 1
	}
	st.Sort = next
	return st, nil
}

// SetPageSize changes the page size and always returns to page 1.
func (l Layout) SetPageSize(st State, size int) (State, error) {
	if size < 1 {
		return st, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	st.Page = PageState{Index: 1, Size: size}
	return st, nil
}

// GoTo moves to index, clamped against the filtered row count.
func (l Layout) GoTo(st State, index, filtered int) State {
	st.Page.Index = Clamp(index, filtered, st.Page.Size)
	return st
}

// Normalize repairs a restored state: unknown sorts fall back to the default
// and invalid page positions to page 1.
func (l Layout) Normalize(st State) State {
	st.Sort = l.Sort.Normalize(st.Sort)
	if st.Page.Size < 1 {
		st.Page.Size = l.pageSize()
	}
	if st.Page.Index < 1 {
		st.Page.Index = 1
	}
	return st
}
