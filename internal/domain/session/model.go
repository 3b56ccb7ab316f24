package session

import (
	"time"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/view"
)

// View is what a front end renders for one page.
type View struct {
	PageID      string                `json:"page_id"`
	Title       string                `json:"title"`
	LoadState   record.State          `json:"load_state"`
	Loaded      bool                  `json:"loaded"`
	LastError   string                `json:"last_error,omitempty"`
	Version     uint64                `json:"version"`
	LoadedAt    time.Time             `json:"loaded_at,omitzero"`
	State       view.State            `json:"state"`
	Input       view.FilterState      `json:"input"`
	IsFiltering bool                  `json:"is_filtering"`
	Columns     []string              `json:"columns"`
	Items       []record.Record       `json:"items"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
	Filtered    int                   `json:"filtered"`
	Total       int                   `json:"total"`
	From        int                   `json:"from"`
	To          int                   `json:"to"`
	Window      []view.PageLink       `json:"window"`
	TabCounts   map[string]int        `json:"tab_counts,omitempty"`
	Summary     []record.SummaryEntry `json:"summary,omitempty"`
}

// Info describes an open session.
type Info struct {
	PageID    string       `json:"page_id"`
	Title     string       `json:"title"`
	Source    string       `json:"source"`
	LoadState record.State `json:"load_state"`
	Version   uint64       `json:"version"`
}

// Observation is the review notes of one user on the current page.
type Observation struct {
	Run   string          `json:"run"`
	Notes []record.Record `json:"notes"`
	Error string          `json:"error,omitempty"`
}
