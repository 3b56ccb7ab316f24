package record

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State describes what a Store currently holds.
type State string

const (
	StateNeverLoaded State = "never_loaded"
	StateLoading     State = "loading"
	StateLoaded      State = "loaded"
	// StateStale means the last load failed and the previous contents are shown.
	StateStale State = "stale"
)

// Snapshot is an immutable view of a Store at one version.
type Snapshot struct {
	Source   Source
	Dataset  Dataset
	Version  uint64
	LoadedAt time.Time
}

// Rows is a shorthand for Dataset.Rows.
func (s Snapshot) Rows() []Record {
	return s.Dataset.Rows
}

// Store holds the records a page last received from the backend. Contents
// are only ever replaced wholesale by a successful Load.
type Store struct {
	src     Source
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	index    map[string]int
	loaded   bool
	inflight int
	lastErr  error
	ticket   uint64
	settled  uint64
	closed   bool
}

// NewStore creates an empty store for src.
func NewStore(src Source, fetcher Fetcher, logger *slog.Logger) *Store {
	return &Store{
		src:     src,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
		snap:    Snapshot{Source: src, Dataset: Dataset{Rows: []Record{}}},
		index:   map[string]int{},
	}
}

// Source returns the resource this store loads from.
func (s *Store) Source() Source {
	return s.src
}

// Load fetches the source and replaces the contents on success. A result is
// discarded with ErrSuperseded when a newer load has already settled, whether
// it succeeded or failed, or, for failures, when a newer load is still pending.
func (s *Store) Load(ctx context.Context, q Query) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	s.ticket++
	ticket := s.ticket
	s.inflight++
	s.mu.Unlock()

	ds, err := s.fetcher.Fetch(ctx, s.src, q)
	if err == nil {
		err = ValidateDataset(s.src, ds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if s.closed {
		return Snapshot{}, ErrClosed
	}

	if ticket < s.settled {
		return Snapshot{}, ErrSuperseded
	}

	if err != nil {
		if ticket < s.ticket {
			return Snapshot{}, ErrSuperseded
		}
		s.settled = ticket
		s.lastErr = err
		if s.logger != nil {
			s.logger.Warn("dataset load failed", "source", s.src.Name, "error", err)
		}
		return Snapshot{}, fmt.Errorf("loading %s: %w", s.src.Name, err)
	}

	index := make(map[string]int, len(ds.Rows))
	if s.src.KeyField != "" {
		for i, row := range ds.Rows {
			index[row.Key(s.src.KeyField)] = i
		}
	}
	s.settled = ticket
	s.index = index
	s.loaded = true
	s.lastErr = nil
	s.snap = Snapshot{
		Source:   s.src,
		Dataset:  ds,
		Version:  s.snap.Version + 1,
		LoadedAt: s.now(),
	}
	if s.logger != nil {
		s.logger.Debug("dataset loaded", "source", s.src.Name, "rows", len(ds.Rows), "total", ds.Total, "version", s.snap.Version)
	}
	return s.snap, nil
}

// IsLoaded reports whether any load has completed, even with zero rows.
func (s *Store) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// State reports the lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.inflight > 0:
		return StateLoading
	case s.loaded && s.lastErr != nil:
		return StateStale
	case s.loaded:
		return StateLoaded
	default:
		return StateNeverLoaded
	}
}

// LastError returns the error of the most recent failed load, cleared by the
// next successful one.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns the current contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Find returns a copy of the record with the given key.
func (s *Store) Find(key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return s.snap.Dataset.Rows[i].Clone(), nil
}

// Close detaches the store from its page. Pending loads finish but their
// results are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
