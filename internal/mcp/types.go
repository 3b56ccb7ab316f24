package mcp

import (
	"time"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
)

type PageParams struct {
	Page string `json:"page"`
}

type LoadDatasetParams struct {
	Page   string         `json:"page"`
	Params map[string]any `json:"params,omitempty"`
}

type QueryViewParams struct {
	Page         string            `json:"page"`
	Filters      map[string]string `json:"filters,omitempty"`
	ClearFilters bool              `json:"clear_filters,omitempty"`
	PageIndex    int               `json:"page_index,omitempty"`
	PageSize     int               `json:"page_size,omitempty"`
}

type SetSortParams struct {
	Page      string `json:"page"`
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

type LookupRunParams struct {
	Run string `json:"run"`
}

type UpdateRecordParams struct {
	Page   string         `json:"page"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type IngestRecordsParams struct {
	Page string          `json:"page"`
	Rows []record.Record `json:"rows,omitempty"`
	// File is relative to the server's import directory.
	File string `json:"file,omitempty"`
	// Workbook carries .xlsx bytes, base64 encoded on the wire.
	Workbook []byte `json:"workbook,omitempty"`
}

type ValidateBatchParams struct {
	Page string   `json:"page,omitempty"`
	IDs  []string `json:"ids,omitempty"`
}

type DeleteDatasetParams struct {
	Page          string `json:"page"`
	Month         string `json:"month,omitempty"`
	ID            string `json:"id,omitempty"`
	Confirm       bool   `json:"confirm,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
}

type ExportViewParams struct {
	Page    string `json:"page"`
	Backend bool   `json:"backend,omitempty"`
}

type ListUploadsParams struct {
	Tipo       string `json:"tipo,omitempty"`
	Estado     string `json:"estado,omitempty"`
	FechaDesde string `json:"fecha_desde,omitempty"`
	FechaHasta string `json:"fecha_hasta,omitempty"`
	PageIndex  int    `json:"page_index,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
}

type RecentActivityParams struct {
	Source  string                 `json:"source,omitempty"`
	Type    *activity.ActivityType `json:"type,omitempty"`
	Outcome *activity.Outcome      `json:"outcome,omitempty"`
	Limit   int                    `json:"limit,omitempty"`
}

type PageSummary struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Source    string       `json:"source"`
	Open      bool         `json:"open"`
	LoadState record.State `json:"load_state,omitempty"`
}

type ListPagesResponse struct {
	Pages []PageSummary `json:"pages"`
}

type QueryViewResponse struct {
	View    session.View        `json:"view"`
	Options map[string][]string `json:"options,omitempty"`
}

type UpdateRecordResponse struct {
	IntentID string `json:"intent_id"`
	Warning  string `json:"warning,omitempty"`
}

type IngestRecordsResponse struct {
	Result  mutation.IngestResult `json:"result"`
	Warning string                `json:"warning,omitempty"`
}

type ValidateBatchResponse struct {
	Report  mutation.Report `json:"report"`
	Warning string          `json:"warning,omitempty"`
}

type DeleteDatasetResponse struct {
	ConfirmationRequired bool   `json:"confirmation_required"`
	Consequence          string `json:"consequence"`
	Deleted              bool   `json:"deleted"`
	IntentID             string `json:"intent_id,omitempty"`
	Warning              string `json:"warning,omitempty"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Type      activity.ActivityType `json:"type"`
	Source    string                `json:"source"`
	Target    string                `json:"target,omitempty"`
	Outcome   activity.Outcome      `json:"outcome"`
	Summary   string                `json:"summary"`
	Details   string                `json:"details,omitempty"`
}

type RecentActivityResponse struct {
	Activity []ActivityEntryResponse `json:"activity"`
}

type ObservationsResponse struct {
	Observations []session.Observation `json:"observations"`
}
