package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/view"
	"golang.org/x/sync/errgroup"
)

const observationConcurrency = 4

// Session owns the data and view state of one page. It is never shared
// between pages.
type Session struct {
	layout   view.Layout
	store    *record.Store
	deriver  *view.Deriver
	deferred *view.Deferred
	svc      *Service
	logger   *slog.Logger

	mu    sync.Mutex
	state view.State
	query record.Query
}

func newSession(svc *Service, layout view.Layout, st view.State) *Session {
	return &Session{
		layout:   layout,
		store:    record.NewStore(layout.Source, svc.fetcher, svc.logger),
		deriver:  view.NewDeriver(layout),
		deferred: view.NewDeferred(st.Filters),
		svc:      svc,
		logger:   svc.logger,
		state:    st,
	}
}

// ID is the page identity.
func (s *Session) ID() string { return s.layout.ID }

// Layout returns the page declaration.
func (s *Session) Layout() view.Layout { return s.layout }

// Source returns the backend resource of the page.
func (s *Session) Source() record.Source { return s.layout.Source }

// Store exposes the page's record store.
func (s *Session) Store() *record.Store { return s.store }

// SetQuery changes the server-side parameters of later loads.
func (s *Session) SetQuery(q record.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.Params = maps.Clone(q.Params)
	s.query = q
}

// Query returns the server-side parameters of the next load.
func (s *Session) Query() record.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Load fetches the page data. Stale enum selections are cleared and the
// page index is clamped against the new contents.
func (s *Session) Load(ctx context.Context) (View, error) {
	snap, err := s.store.Load(ctx, s.Query())
	if err != nil {
		return s.View(), err
	}

	rows := s.layout.RowsOf(snap.Dataset)
	input := s.deferred.Immediate()
	if clean := s.layout.Filters.Sanitize(input, rows); !clean.Equal(input) {
		s.deferred.Settle(s.deferred.Set(clean))
	}

	s.mu.Lock()
	s.state = s.layout.WithFilters(s.state, s.deferred.Effective())
	res := s.deriver.Derive(snap, s.state)
	s.state.Page.Index = res.Page.Index
	s.mu.Unlock()

	s.persist(ctx)
	return s.View(), nil
}

// Reload satisfies mutation.Target. A reload overtaken by a newer one is not
// an error: the newer result is what the page shows.
func (s *Session) Reload(ctx context.Context) error {
	_, err := s.Load(ctx)
	if errors.Is(err, record.ErrSuperseded) {
		return nil
	}
	return err
}

// SetFilter records filter input. Text-like filters are deferred: the
// returned generation must be passed to Settle once typing pauses. Select
// and toggle filters apply at once and return 0.
func (s *Session) SetFilter(name, value string) (uint64, error) {
	next, err := s.layout.Filters.Set(s.deferred.Immediate(), name, value)
	if err != nil {
		return 0, err
	}
	gen := s.deferred.Set(next)

	f, _ := s.layout.Filters.Lookup(name)
	if f.Kind == view.Text || f.Kind == view.Identifier {
		return gen, nil
	}
	s.Settle(gen)
	return 0, nil
}

// ApplyFilter sets a filter and applies it immediately.
func (s *Session) ApplyFilter(ctx context.Context, name, value string) error {
	if _, err := s.SetFilter(name, value); err != nil {
		return err
	}
	s.Flush(ctx)
	return nil
}

// Settle applies the filter input of generation gen if it is still the
// latest one. It reports whether the view changed inputs.
func (s *Session) Settle(gen uint64) bool {
	if !s.deferred.Settle(gen) {
		return false
	}
	s.applyEffective()
	return true
}

// Flush applies pending filter input now.
func (s *Session) Flush(ctx context.Context) {
	s.deferred.Flush()
	s.applyEffective()
	s.persist(ctx)
}

func (s *Session) applyEffective() {
	s.mu.Lock()
	s.state = s.layout.WithFilters(s.state, s.deferred.Effective())
	s.mu.Unlock()
}

// ClearFilters drops every filter input.
func (s *Session) ClearFilters(ctx context.Context) {
	s.deferred.Settle(s.deferred.Set(view.FilterState{}))
	s.applyEffective()
	s.persist(ctx)
}

// IsFiltering reports whether typed filter input is still pending.
func (s *Session) IsFiltering() bool {
	return s.deferred.IsFiltering()
}

// ToggleSort clicks a column header.
func (s *Session) ToggleSort(ctx context.Context, field string) error {
	return s.update(ctx, func(st view.State) (view.State, error) {
		return s.layout.ToggleSort(st, field)
	})
}

// SetSort applies an explicit sort.
func (s *Session) SetSort(ctx context.Context, field string, dir view.Direction) error {
	return s.update(ctx, func(st view.State) (view.State, error) {
		return s.layout.SetSort(st, field, dir)
	})
}

// SetPageSize changes the rows per page.
func (s *Session) SetPageSize(ctx context.Context, size int) error {
	return s.update(ctx, func(st view.State) (view.State, error) {
		return s.layout.SetPageSize(st, size)
	})
}

// GoTo moves to page index, clamped to the available pages.
func (s *Session) GoTo(ctx context.Context, index int) error {
	snap := s.store.Snapshot()
	return s.update(ctx, func(st view.State) (view.State, error) {
		res := s.deriver.Derive(snap, st)
		return s.layout.GoTo(st, index, len(res.Rows)), nil
	})
}

func (s *Session) update(ctx context.Context, fn func(view.State) (view.State, error)) error {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()
	s.persist(ctx)
	return nil
}

// State returns the effective view state.
func (s *Session) State() view.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View derives what the page shows now.
func (s *Session) View() View {
	snap := s.store.Snapshot()
	st := s.State()
	res := s.deriver.Derive(snap, st)

	v := View{
		PageID:      s.layout.ID,
		Title:       s.layout.Title,
		LoadState:   s.store.State(),
		Loaded:      s.store.IsLoaded(),
		Version:     snap.Version,
		LoadedAt:    snap.LoadedAt,
		State:       st,
		Input:       s.deferred.Immediate(),
		IsFiltering: s.deferred.IsFiltering(),
		Columns:     s.columns(snap.Dataset),
		Items:       res.Page.Items,
		Page:        res.Page.Index,
		PageSize:    res.Page.Size,
		TotalPages:  res.Page.TotalPages,
		Filtered:    res.Page.Total,
		Total:       snap.Dataset.Total,
		From:        res.Page.From(),
		To:          res.Page.To(),
		Window:      view.Window(res.Page.Index, res.Page.TotalPages),
		Summary:     snap.Dataset.Summary,
	}
	if err := s.store.LastError(); err != nil {
		v.LastError = err.Error()
	}
	if s.layout.TabFilter != "" {
		v.TabCounts = s.layout.Filters.TabCounts(s.layout.RowsOf(snap.Dataset), s.layout.TabFilter, s.layout.Tabs)
	}
	return v
}

// Visible returns every filtered and sorted row, across all pages.
func (s *Session) Visible() []record.Record {
	return s.deriver.Derive(s.store.Snapshot(), s.State()).Rows
}

// Rows returns every loaded row, ignoring filters and sort.
func (s *Session) Rows() []record.Record {
	return s.layout.RowsOf(s.store.Snapshot().Dataset)
}

// EnumOptions lists the values an Enum filter can take on loaded data.
func (s *Session) EnumOptions(name string) []string {
	return s.layout.Filters.EnumOptions(s.Rows(), name)
}

func (s *Session) columns(ds record.Dataset) []string {
	if len(s.layout.Columns) > 0 {
		return s.layout.Columns
	}
	return ds.Columns
}

// Observations fetches the review notes of every user on the current page.
// Failures are reported per user.
func (s *Session) Observations(ctx context.Context) ([]Observation, error) {
	if s.svc.observations == nil {
		return nil, fmt.Errorf("observations: no source configured")
	}
	if !s.store.IsLoaded() {
		return nil, ErrNotLoaded
	}

	items := s.View().Items
	out := make([]Observation, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(observationConcurrency)
	for i, item := range items {
		run := item.Text("run")
		out[i].Run = run
		if run == "" {
			continue
		}
		g.Go(func() error {
			notes, err := s.svc.observations.Observations(gctx, run)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				out[i].Error = err.Error()
				return nil
			}
			out[i].Notes = notes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) close() {
	s.store.Close()
}
