package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/inscritos/internal/repository"
)

// ViewStateRepository implements repository.ViewStateRepository for SQLite
type ViewStateRepository struct {
	db *DB
}

// NewViewStateRepository creates a new ViewStateRepository
func NewViewStateRepository(db *DB) *ViewStateRepository {
	return &ViewStateRepository{db: db}
}

// Get returns the saved state of a page
func (r *ViewStateRepository) Get(ctx context.Context, pageID string) (*repository.ViewState, error) {
	query := `
		SELECT page_id, filters, sort_field, sort_dir, page_index, page_size, updated_at
		FROM view_states
		WHERE page_id = ?
	`

	var st repository.ViewState
	var filters string
	err := r.db.QueryRowContext(ctx, query, pageID).Scan(
		&st.PageID,
		&filters,
		&st.SortField,
		&st.SortDirection,
		&st.PageIndex,
		&st.PageSize,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get view state: %w", err)
	}
	st.Filters = []byte(filters)
	return &st, nil
}

// Save inserts or replaces the state of a page
func (r *ViewStateRepository) Save(ctx context.Context, st *repository.ViewState) error {
	if st.PageID == "" {
		return fmt.Errorf("%w: missing page id", repository.ErrInvalidInput)
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	filters := string(st.Filters)
	if filters == "" {
		filters = "{}"
	}

	query := `
		INSERT INTO view_states (page_id, filters, sort_field, sort_dir, page_index, page_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			filters = excluded.filters,
			sort_field = excluded.sort_field,
			sort_dir = excluded.sort_dir,
			page_index = excluded.page_index,
			page_size = excluded.page_size,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		st.PageID, filters, st.SortField, st.SortDirection, st.PageIndex, st.PageSize, st.UpdatedAt.UTC())
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

// Delete forgets the state of a page
func (r *ViewStateRepository) Delete(ctx context.Context, pageID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM view_states WHERE page_id = ?`, pageID)
	if err != nil {
		return fmt.Errorf("failed to delete view state: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns every saved page state ordered by page id
func (r *ViewStateRepository) List(ctx context.Context) ([]repository.ViewState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT page_id, filters, sort_field, sort_dir, page_index, page_size, updated_at
		FROM view_states
		ORDER BY page_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list view states: %w", err)
	}
	defer rows.Close()

	var states []repository.ViewState
	for rows.Next() {
		var st repository.ViewState
		var filters string
		if err := rows.Scan(&st.PageID, &filters, &st.SortField, &st.SortDirection, &st.PageIndex, &st.PageSize, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan view state: %w", err)
		}
		st.Filters = []byte(filters)
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view state rows: %w", err)
	}
	return states, nil
}
