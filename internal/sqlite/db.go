package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dataSourceName, ":memory:") || strings.Contains(dataSourceName, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the local state tables if they do not exist yet.
func (db *DB) RunMigrations() error {
	migration := `
-- Per-page filter, sort and paging state
CREATE TABLE IF NOT EXISTS view_states (
    page_id TEXT PRIMARY KEY,
    filters TEXT NOT NULL DEFAULT '{}',
    sort_field TEXT NOT NULL DEFAULT '',
    sort_dir TEXT NOT NULL DEFAULT '' CHECK(sort_dir IN ('', 'asc', 'desc')),
    page_index INTEGER NOT NULL DEFAULT 1,
    page_size INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Mutation log
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    intent_id TEXT NOT NULL,
    activity_type TEXT NOT NULL,
    source TEXT NOT NULL,
    target TEXT,
    outcome TEXT NOT NULL CHECK(outcome IN ('succeeded', 'failed', 'cancelled', 'rejected')),
    summary TEXT NOT NULL,
    details TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_activity_source ON activity_log(source);
CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_log(created_at);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
