package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/upload"
	"github.com/ganot/inscritos/internal/export"
	"github.com/ganot/inscritos/internal/sqlite"
	"github.com/ganot/inscritos/internal/testserver"
	"github.com/stretchr/testify/require"
)

type stack struct {
	handler   *Handler
	services  Services
	backend   *testserver.TestServer
	exportDir string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ts := testserver.New(t, "secret")
	client := api.NewClient(api.Options{BaseURL: ts.URL(), Token: ts.Token})

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	dir := t.TempDir()
	svc := Services{
		Sessions: session.NewService(client, nil,
			session.WithStateRepository(sqlite.NewViewStateRepository(db)),
			session.WithObservations(client)),
		Mutations: mutation.NewGateway(client, nil, mutation.WithActivity(activitySvc)),
		Lookup:    client,
		Uploads:   upload.NewService(client, nil),
		Activity:  activitySvc,
		Exports:   export.NewExporter(export.FileSink{Dir: dir}, client, nil),
	}
	return &stack{handler: NewHandler(svc, dir), services: svc, backend: ts, exportDir: dir}
}

func (s *stack) call(t *testing.T, method string, params any) (any, error) {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return s.handler.Handle(context.Background(), method, raw)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	apiErr := MapError(err)
	require.NotNil(t, apiErr, "unmapped error: %v", err)
	require.Equal(t, code, apiErr.Code)
}

func TestHandler_ListPages(t *testing.T) {
	s := newStack(t)
	out, err := s.call(t, "list_pages", nil)
	require.NoError(t, err)

	pages := out.(ListPagesResponse).Pages
	require.Len(t, pages, 6)
	require.Equal(t, "cortes", pages[0].ID)
	for _, p := range pages {
		require.False(t, p.Open)
	}
}

func TestHandler_LoadQueryAndSort(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("nuevos-usuarios", testserver.Users(25)...)

	out, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)
	v := out.(session.View)
	require.True(t, v.Loaded)
	require.Equal(t, 25, v.Filtered)
	require.Equal(t, 3, v.TotalPages)

	out, err = s.call(t, "query_view", QueryViewParams{Page: "nuevos-usuarios", PageIndex: 3})
	require.NoError(t, err)
	require.Equal(t, 3, out.(QueryViewResponse).View.Page)

	// A filter change returns to page 1.
	out, err = s.call(t, "query_view", QueryViewParams{
		Page:    "nuevos-usuarios",
		Filters: map[string]string{"nombre": "usuario 01"},
	})
	require.NoError(t, err)
	qv := out.(QueryViewResponse)
	require.Equal(t, 1, qv.View.Page)
	require.Equal(t, 10, qv.View.Filtered)
	require.Contains(t, qv.Options["estado"], "PENDIENTE")

	out, err = s.call(t, "set_sort", SetSortParams{Page: "nuevos-usuarios", Field: "run", Direction: "asc"})
	require.NoError(t, err)
	sorted := out.(session.View)
	require.Equal(t, "run", sorted.State.Sort.Field)
	require.Equal(t, testserver.Users(1)[0].Text("run"), sorted.Items[0].Text("run"))

	_, err = s.call(t, "set_sort", SetSortParams{Page: "nuevos-usuarios", Field: "password"})
	requireCode(t, err, "UNSORTABLE_FIELD")

	_, err = s.call(t, "query_view", QueryViewParams{Page: "nuevos-usuarios", Filters: map[string]string{"bogus": "x"}})
	requireCode(t, err, "UNKNOWN_FILTER")
}

func TestHandler_UnknownPage(t *testing.T) {
	s := newStack(t)
	_, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nope"})
	requireCode(t, err, "UNKNOWN_PAGE")

	_, err = s.call(t, "load_dataset", LoadDatasetParams{})
	requireCode(t, err, "INVALID_PARAMS")
}

func TestHandler_LoadFailureMapsBackendError(t *testing.T) {
	s := newStack(t)
	s.backend.Fail(http.MethodGet, "nuevos-usuarios", http.StatusInternalServerError, "base de datos caída")

	_, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	requireCode(t, err, "BACKEND_ERROR")
	require.Equal(t, "base de datos caída", MapError(err).Message)
}

func TestHandler_LookupRun(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("corte-fonasa", record.Record{"id": float64(1), "run": "12345678-5", "motivo": "MANTIENE INSCRIPCION"})

	out, err := s.call(t, "lookup_run", LookupRunParams{Run: "12.345.678-5"})
	require.NoError(t, err)
	found := out.(record.Record)
	require.True(t, found.Has("corte-fonasa"))

	before := len(s.backend.Requests())
	_, err = s.call(t, "lookup_run", LookupRunParams{Run: "12345678-9"})
	requireCode(t, err, "INVALID_RUN")
	require.Len(t, s.backend.Requests(), before)
}

func TestHandler_UpdateRecord(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("nuevos-usuarios", testserver.Users(3)...)
	_, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)

	out, err := s.call(t, "update_record", UpdateRecordParams{
		Page:   "nuevos-usuarios",
		ID:     "2",
		Fields: map[string]any{"nombreCompleto": "Ana Pérez", "observacion": ""},
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.(UpdateRecordResponse).IntentID)
	require.Empty(t, out.(UpdateRecordResponse).Warning)
	require.Equal(t, "Ana Pérez", s.backend.Rows("nuevos-usuarios")[1].Text("nombreCompleto"))

	_, err = s.call(t, "update_record", UpdateRecordParams{
		Page:   "nuevos-usuarios",
		ID:     "2",
		Fields: map[string]any{"run": "12345678-9"},
	})
	requireCode(t, err, "INVALID_RUN")

	out, err = s.call(t, "recent_activity", RecentActivityParams{})
	require.NoError(t, err)
	entries := out.(RecentActivityResponse).Activity
	require.Len(t, entries, 2)
	require.Equal(t, activity.OutcomeRejected, entries[0].Outcome)
	require.Equal(t, activity.OutcomeSucceeded, entries[1].Outcome)
}

func TestHandler_UpdateReloadFailureIsWarning(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("nuevos-usuarios", testserver.Users(3)...)
	_, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)

	s.backend.Fail(http.MethodGet, "nuevos-usuarios", http.StatusBadGateway, "")
	out, err := s.call(t, "update_record", UpdateRecordParams{
		Page:   "nuevos-usuarios",
		ID:     "1",
		Fields: map[string]any{"estado": "VALIDADO"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.(UpdateRecordResponse).Warning)
}

func TestHandler_IngestFromWorkbook(t *testing.T) {
	s := newStack(t)
	data, err := export.Workbook("Carga", []string{"run", "nombreCompleto"}, []record.Record{
		{"run": "12345678-5", "nombreCompleto": "Ana"},
		{"run": "12345678-9", "nombreCompleto": "Inválido"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.exportDir, "carga.xlsx"), data, 0o600))

	out, err := s.call(t, "ingest_records", IngestRecordsParams{Page: "nuevos-usuarios", File: "carga.xlsx"})
	require.NoError(t, err)
	res := out.(IngestRecordsResponse).Result
	require.Equal(t, 1, res.Created)
	require.Equal(t, 1, res.Invalid)

	out, err = s.call(t, "ingest_records", IngestRecordsParams{Page: "nuevos-usuarios", Workbook: data})
	require.NoError(t, err)
	require.Equal(t, 2, out.(IngestRecordsResponse).Result.Total)

	_, err = s.call(t, "ingest_records", IngestRecordsParams{Page: "nuevos-usuarios"})
	requireCode(t, err, "INVALID_INPUT")
}

func TestHandler_IngestFileStaysInImportDir(t *testing.T) {
	s := newStack(t)
	data, err := export.Workbook("Carga", []string{"run"}, []record.Record{{"run": "12345678-5"}})
	require.NoError(t, err)

	outside := t.TempDir()
	secret := filepath.Join(outside, "secreto.xlsx")
	require.NoError(t, os.WriteFile(secret, data, 0o600))
	rel, err := filepath.Rel(s.exportDir, secret)
	require.NoError(t, err)

	for _, name := range []string{secret, rel, "../../etc/passwd", "no-existe.xlsx"} {
		_, err := s.call(t, "ingest_records", IngestRecordsParams{Page: "nuevos-usuarios", File: name})
		requireCode(t, err, "INVALID_INPUT")
		require.NotContains(t, err.Error(), outside)
	}
	require.Zero(t, s.backend.Count(http.MethodPost, "nuevos-usuarios"))

	disabled := NewHandler(s.services, "")
	raw, err := json.Marshal(IngestRecordsParams{Page: "nuevos-usuarios", File: "carga.xlsx"})
	require.NoError(t, err)
	_, err = disabled.Handle(context.Background(), "ingest_records", raw)
	requireCode(t, err, "IMPORT_DISABLED")
}

func TestHandler_ValidateBatch(t *testing.T) {
	s := newStack(t)
	users := testserver.Users(4)
	s.backend.Seed("nuevos-usuarios", users...)
	s.backend.Seed("corte-fonasa", record.Record{"id": float64(1), "run": users[0].Text("run")})

	_, err := s.call(t, "validate_batch", ValidateBatchParams{})
	requireCode(t, err, "NOT_LOADED")

	_, err = s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)

	out, err := s.call(t, "validate_batch", ValidateBatchParams{IDs: []string{"1", "2"}})
	require.NoError(t, err)
	report := out.(ValidateBatchResponse).Report
	require.Equal(t, mutation.ModeBatch, report.Mode)
	require.Equal(t, 2, report.TotalChecked)
	require.Equal(t, 1, report.TotalUpdated)
	require.Equal(t, "VALIDADO", s.backend.Rows("nuevos-usuarios")[0].Text("estado"))
}

func TestHandler_ValidateBatchIgnoresViewFilters(t *testing.T) {
	s := newStack(t)
	users := testserver.Users(3)
	s.backend.Seed("nuevos-usuarios", users...)
	s.backend.Seed("corte-fonasa", record.Record{"id": float64(1), "run": users[0].Text("run")})

	_, err := s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)
	out, err := s.call(t, "query_view", QueryViewParams{
		Page:    "nuevos-usuarios",
		Filters: map[string]string{"estado": "VALIDADO"},
	})
	require.NoError(t, err)
	require.Zero(t, out.(QueryViewResponse).View.Filtered)

	out, err = s.call(t, "validate_batch", ValidateBatchParams{})
	require.NoError(t, err)
	report := out.(ValidateBatchResponse).Report
	require.Equal(t, 3, report.TotalChecked)
	require.Equal(t, 1, report.TotalUpdated)
}

func TestHandler_DeleteRequiresTwoSteps(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("corte-fonasa",
		record.Record{"id": float64(1), "run": "12345678-5", "fechaCorte": "2025-01-31"},
		record.Record{"id": float64(2), "run": "6000000-K", "fechaCorte": "2025-02-28"},
	)

	out, err := s.call(t, "delete_dataset", DeleteDatasetParams{Page: "corte-fonasa", Month: "2025-01"})
	require.NoError(t, err)
	resp := out.(DeleteDatasetResponse)
	require.True(t, resp.ConfirmationRequired)
	require.Contains(t, resp.Consequence, "PERMANENTEMENTE")
	require.Empty(t, s.backend.Requests())

	_, err = s.call(t, "delete_dataset", DeleteDatasetParams{Page: "corte-fonasa", Month: "2025-01", Confirm: true})
	requireCode(t, err, "CANCELLED")
	require.Empty(t, s.backend.Requests())

	out, err = s.call(t, "delete_dataset", DeleteDatasetParams{Page: "corte-fonasa", Month: "2025-01", Confirm: true, AdminPassword: "admin"})
	require.NoError(t, err)
	require.True(t, out.(DeleteDatasetResponse).Deleted)
	require.Equal(t, 1, s.backend.Count(http.MethodDelete, "corte-fonasa"))
	require.Len(t, s.backend.Rows("corte-fonasa"), 1)
}

func TestHandler_DeleteWrongPassword(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("corte-fonasa", record.Record{"id": float64(1), "run": "12345678-5"})

	_, err := s.call(t, "delete_dataset", DeleteDatasetParams{Page: "corte-fonasa", Confirm: true, AdminPassword: "guess"})
	requireCode(t, err, "BACKEND_ERROR")
	require.Equal(t, "Contraseña de administrador incorrecta.", MapError(err).Message)
	require.Len(t, s.backend.Rows("corte-fonasa"), 1)
}

func TestHandler_ExportView(t *testing.T) {
	s := newStack(t)
	s.backend.Seed("nuevos-usuarios", testserver.Users(12)...)

	_, err := s.call(t, "export_view", ExportViewParams{Page: "nuevos-usuarios"})
	requireCode(t, err, "NOT_LOADED")

	_, err = s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)

	out, err := s.call(t, "export_view", ExportViewParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)
	res := out.(export.Result)
	require.Equal(t, 12, res.Rows)
	require.Regexp(t, `^nuevos-usuarios_\d{4}-\d{2}-\d{2}\.xlsx$`, res.Filename)

	data, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	rows, err := export.ReadFile(data)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	out, err = s.call(t, "export_view", ExportViewParams{Page: "nuevos-usuarios", Backend: true})
	require.NoError(t, err)
	require.Equal(t, 1, s.backend.Count(http.MethodGet, "nuevos-usuarios/exportar"))
	require.Positive(t, out.(export.Result).Bytes)
}

func TestHandler_ListUploads(t *testing.T) {
	s := newStack(t)
	s.backend.AddUpload(map[string]any{"id": 1, "tipo": "cortes", "estado": "completado", "nombreArchivo": "corte.xlsx"})

	out, err := s.call(t, "list_uploads", ListUploadsParams{Tipo: "cortes"})
	require.NoError(t, err)
	require.Equal(t, 1, out.(upload.Page).Count)

	_, err = s.call(t, "list_uploads", ListUploadsParams{FechaDesde: "ayer"})
	requireCode(t, err, "INVALID_FILTER")
}

func TestHandler_PageObservations(t *testing.T) {
	s := newStack(t)
	users := testserver.Users(2)
	s.backend.Seed("nuevos-usuarios", users...)
	s.backend.SetObservations(users[0].Text("run"), record.Record{"texto": "revisar domicilio"})

	_, err := s.call(t, "page_observations", PageParams{Page: "nuevos-usuarios"})
	requireCode(t, err, "NOT_LOADED")

	_, err = s.call(t, "load_dataset", LoadDatasetParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)
	out, err := s.call(t, "page_observations", PageParams{Page: "nuevos-usuarios"})
	require.NoError(t, err)
	obs := out.(ObservationsResponse).Observations
	require.Len(t, obs, 2)
}

func TestHandler_UnknownMethod(t *testing.T) {
	s := newStack(t)
	_, err := s.call(t, "drop_tables", nil)
	require.Error(t, err)
	require.Nil(t, MapError(err))
}
