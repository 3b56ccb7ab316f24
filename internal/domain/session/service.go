package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/ganot/inscritos/internal/repository"
)

// Service opens and tracks page sessions.
type Service struct {
	fetcher      record.Fetcher
	states       repository.ViewStateRepository
	observations ObservationSource
	logger       *slog.Logger
	pageSize     int

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Service.
type Option func(*Service)

// WithStateRepository persists view state across runs.
func WithStateRepository(repo repository.ViewStateRepository) Option {
	return func(s *Service) { s.states = repo }
}

// WithObservations enables Session.Observations.
func WithObservations(src ObservationSource) Option {
	return func(s *Service) { s.observations = src }
}

// WithPageSize overrides the page size of layouts that keep the default.
func WithPageSize(size int) Option {
	return func(s *Service) { s.pageSize = size }
}

// NewService creates a session service loading through fetcher.
func NewService(fetcher record.Fetcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		logger:   logger,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the session of pageID, creating it from persisted state on
// first use. Nothing is fetched until Load.
func (s *Service) Open(ctx context.Context, pageID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[pageID]; ok {
		return sess, nil
	}

	layout, err := view.LookupLayout(pageID)
	if err != nil {
		return nil, err
	}
	if s.pageSize > 0 && (layout.PageSize == 0 || layout.PageSize == view.DefaultPageSize) {
		layout.PageSize = s.pageSize
	}

	sess := newSession(s, layout, s.restore(ctx, layout))
	s.sessions[pageID] = sess
	if s.logger != nil {
		s.logger.Debug("session opened", "page", pageID)
	}
	return sess, nil
}

// Get returns an open session.
func (s *Service) Get(pageID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, pageID)
	}
	return sess, nil
}

// Close detaches a page. Loads still in flight are dropped.
func (s *Service) Close(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[pageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, pageID)
	}
	sess.close()
	delete(s.sessions, pageID)
	return nil
}

// CloseAll closes every open session.
func (s *Service) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
}

// List describes the open sessions ordered by page id.
func (s *Service) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Info, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, Info{
			PageID:    sess.layout.ID,
			Title:     sess.layout.Title,
			Source:    sess.layout.Source.Name,
			LoadState: sess.store.State(),
			Version:   sess.store.Snapshot().Version,
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.PageID, b.PageID) })
	return out
}

// Forget drops the persisted state of pageID.
func (s *Service) Forget(ctx context.Context, pageID string) error {
	if s.states == nil {
		return nil
	}
	err := s.states.Delete(ctx, pageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// restore reads persisted state. Anything missing, renamed or malformed
// falls back to the layout defaults.
func (s *Service) restore(ctx context.Context, layout view.Layout) view.State {
	st := layout.NewState()
	if s.states == nil {
		return st
	}
	saved, err := s.states.Get(ctx, layout.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && s.logger != nil {
			s.logger.Warn("failed to restore view state", "page", layout.ID, "error", err)
		}
		return st
	}

	st.Filters = layout.Filters.Restore(saved.Filters)
	st.Sort = view.SortState{Field: saved.SortField, Direction: view.Direction(saved.SortDirection)}
	st.Page = view.PageState{Index: saved.PageIndex, Size: saved.PageSize}
	return layout.Normalize(st)
}

func (s *Session) persist(ctx context.Context) {
	repo := s.svc.states
	if repo == nil {
		return
	}
	st := s.State()
	filters, err := json.Marshal(s.deferred.Immediate())
	if err != nil {
		return
	}
	err = repo.Save(context.WithoutCancel(ctx), &repository.ViewState{
		PageID:        s.layout.ID,
		Filters:       filters,
		SortField:     st.Sort.Field,
		SortDirection: string(st.Sort.Direction),
		PageIndex:     st.Page.Index,
		PageSize:      st.Page.Size,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("failed to persist view state", "page", s.layout.ID, "error", err)
	}
}
