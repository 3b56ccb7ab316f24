package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/upload"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/ganot/inscritos/internal/export"
	"github.com/ganot/inscritos/internal/rut"
)

// Handler dispatches MCP commands.
type Handler struct {
	sessions  SessionService
	mutations MutationService
	lookup    LookupService
	uploads   UploadService
	activity  ActivityService
	exports   ExportService
	importDir string
}

// ErrImportDisabled is returned for workbook paths when no import directory
// is configured.
var ErrImportDisabled = errors.New("workbook import directory not configured")

// NewHandler creates a new MCP handler. Workbook paths given to
// ingest_records are resolved inside importDir; an empty importDir disables
// them.
func NewHandler(svc Services, importDir string) *Handler {
	return &Handler{
		importDir: importDir,
		sessions:  svc.Sessions,
		mutations: svc.Mutations,
		lookup:    svc.Lookup,
		uploads:   svc.Uploads,
		activity:  svc.Activity,
		exports:   svc.Exports,
	}
}

// Handle dispatches MCP requests to domain services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "list_pages":
		return h.listPages(), nil
	case "load_dataset":
		var req LoadDatasetParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		if req.Params != nil {
			sess.SetQuery(record.Query{Params: req.Params})
		}
		v, err := sess.Load(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		return v, nil
	case "query_view":
		var req QueryViewParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		if req.ClearFilters {
			sess.ClearFilters(ctx)
		}
		names := make([]string, 0, len(req.Filters))
		for name := range req.Filters {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if err := sess.ApplyFilter(ctx, name, req.Filters[name]); err != nil {
				return nil, mapError(err)
			}
		}
		if req.PageSize != 0 {
			if err := sess.SetPageSize(ctx, req.PageSize); err != nil {
				return nil, mapError(err)
			}
		}
		if req.PageIndex != 0 {
			if err := sess.GoTo(ctx, req.PageIndex); err != nil {
				return nil, mapError(err)
			}
		}
		return QueryViewResponse{View: sess.View(), Options: enumOptions(sess)}, nil
	case "set_sort":
		var req SetSortParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		switch dir := view.Direction(strings.ToLower(req.Direction)); dir {
		case "":
			err = sess.ToggleSort(ctx, req.Field)
		case view.Asc, view.Desc:
			err = sess.SetSort(ctx, req.Field, dir)
		default:
			err = fmt.Errorf("%w: direction %q", mutation.ErrInvalidInput, req.Direction)
		}
		if err != nil {
			return nil, mapError(err)
		}
		return sess.View(), nil
	case "lookup_run":
		var req LookupRunParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if !rut.Validate(req.Run) {
			return nil, mapError(fmt.Errorf("%w: %s", mutation.ErrInvalidRUT, req.Run))
		}
		found, err := h.lookup.LookupRun(ctx, rut.Format(req.Run))
		if err != nil {
			return nil, mapError(err)
		}
		return found, nil
	case "update_record":
		var req UpdateRecordParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		in, err := h.mutations.UpdateRecord(ctx, sess, req.ID, req.Fields)
		warning, err := reloadWarning(err)
		if err != nil {
			return nil, mapError(err)
		}
		return UpdateRecordResponse{IntentID: in.ID, Warning: warning}, nil
	case "ingest_records":
		var req IngestRecordsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		rows := req.Rows
		data := req.Workbook
		if req.File != "" {
			if data, err = h.readImport(req.File); err != nil {
				return nil, mapError(err)
			}
		}
		if len(data) > 0 {
			if rows, err = export.ReadFile(data); err != nil {
				return nil, fmt.Errorf("%w: %w", mutation.ErrInvalidInput, err)
			}
		}
		res, err := h.mutations.Ingest(ctx, sess, rows)
		warning, err := reloadWarning(err)
		if err != nil {
			return nil, mapError(err)
		}
		return IngestRecordsResponse{Result: res, Warning: warning}, nil
	case "validate_batch":
		var req ValidateBatchParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Page == "" {
			req.Page = view.NuevosUsuariosLayout.ID
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		if !sess.Store().IsLoaded() {
			return nil, mapError(session.ErrNotLoaded)
		}
		users := sess.Rows()
		if len(req.IDs) > 0 {
			users = slices.DeleteFunc(slices.Clone(users), func(u record.Record) bool {
				return !slices.Contains(req.IDs, u.Text("id"))
			})
		}
		report, err := h.mutations.BulkValidate(ctx, sess, users, mutation.BulkOptions{})
		warning, err := reloadWarning(err)
		if err != nil {
			return nil, mapError(err)
		}
		return ValidateBatchResponse{Report: report, Warning: warning}, nil
	case "delete_dataset":
		var req DeleteDatasetParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		target := mutation.DeleteTarget{Source: sess.Source(), Month: req.Month, ID: req.ID}
		if !req.Confirm {
			return DeleteDatasetResponse{ConfirmationRequired: true, Consequence: mutation.Consequence(target)}, nil
		}
		in, err := h.mutations.DeleteDataset(ctx, sess, target, mutation.StaticConfirmer{
			Accept:        true,
			AdminPassword: req.AdminPassword,
		})
		warning, err := reloadWarning(err)
		if err != nil {
			return nil, mapError(err)
		}
		return DeleteDatasetResponse{Consequence: mutation.Consequence(target), Deleted: true, IntentID: in.ID, Warning: warning}, nil
	case "export_view":
		var req ExportViewParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		if req.Backend {
			res, err := h.exports.ExportBackend(ctx, sess.Source(), sess.Query().Merge(sess.Source()))
			if err != nil {
				return nil, mapError(err)
			}
			return res, nil
		}
		if !sess.Store().IsLoaded() {
			return nil, mapError(session.ErrNotLoaded)
		}
		v := sess.View()
		res, err := h.exports.ExportRows(ctx, v.PageID, v.Title, v.Columns, sess.Visible())
		if err != nil {
			return nil, mapError(err)
		}
		return res, nil
	case "list_uploads":
		var req ListUploadsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		page, err := h.uploads.List(ctx, upload.Filter{
			Tipo:       req.Tipo,
			Estado:     req.Estado,
			FechaDesde: req.FechaDesde,
			FechaHasta: req.FechaHasta,
			Page:       req.PageIndex,
			PageSize:   req.PageSize,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return page, nil
	case "recent_activity":
		var req RecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{
			Source:       req.Source,
			ActivityType: req.Type,
			Outcome:      req.Outcome,
			Limit:        req.Limit,
		})
		if err != nil {
			return nil, mapError(err)
		}
		resp := RecentActivityResponse{Activity: make([]ActivityEntryResponse, 0, len(entries))}
		for _, entry := range entries {
			resp.Activity = append(resp.Activity, ActivityEntryResponse{
				Timestamp: entry.CreatedAt,
				Type:      entry.ActivityType,
				Source:    entry.Source,
				Target:    entry.Target,
				Outcome:   entry.Outcome,
				Summary:   entry.Summary,
				Details:   entry.Details,
			})
		}
		return resp, nil
	case "page_observations":
		var req PageParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sess, err := h.open(ctx, req.Page)
		if err != nil {
			return nil, err
		}
		obs, err := sess.Observations(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		return ObservationsResponse{Observations: obs}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error()}
	}
	return nil
}

func (h *Handler) open(ctx context.Context, pageID string) (*session.Session, error) {
	if pageID == "" {
		return nil, &APIError{Code: "INVALID_PARAMS", Message: "page is required", RecoveryHint: "Call list_pages for valid page ids"}
	}
	sess, err := h.sessions.Open(ctx, pageID)
	if err != nil {
		return nil, mapError(err)
	}
	return sess, nil
}

func (h *Handler) listPages() ListPagesResponse {
	open := map[string]session.Info{}
	for _, info := range h.sessions.List() {
		open[info.PageID] = info
	}
	resp := ListPagesResponse{}
	for _, id := range view.LayoutIDs() {
		l, err := view.LookupLayout(id)
		if err != nil {
			continue
		}
		info, ok := open[id]
		resp.Pages = append(resp.Pages, PageSummary{
			ID:        l.ID,
			Title:     l.Title,
			Source:    l.Source.Name,
			Open:      ok,
			LoadState: info.LoadState,
		})
	}
	return resp
}

func enumOptions(sess *session.Session) map[string][]string {
	out := map[string][]string{}
	for _, f := range sess.Layout().Filters {
		if f.Kind == view.Enum {
			out[f.Name] = sess.EnumOptions(f.Name)
		}
	}
	return out
}

// reloadWarning turns a failed refresh after an applied write into a warning.
func reloadWarning(err error) (string, error) {
	if errors.Is(err, mutation.ErrReloadFailed) {
		return "Los cambios se guardaron pero no se pudo recargar la vista", nil
	}
	return "", err
}

// readImport reads name from the import directory. Names that resolve outside
// it, through ".." or symlinks, are rejected.
func (h *Handler) readImport(name string) ([]byte, error) {
	if h.importDir == "" {
		return nil, ErrImportDisabled
	}
	if filepath.IsAbs(name) {
		return nil, fmt.Errorf("%w: workbook path must be relative to the import directory", mutation.ErrInvalidInput)
	}
	root, err := os.OpenRoot(h.importDir)
	if err != nil {
		return nil, fmt.Errorf("open import directory: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook %s", mutation.ErrInvalidInput, filepath.Base(name))
	}
	defer f.Close()
	return io.ReadAll(f)
}
