package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/rut"
)

// Request is one call received by the fake backend.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]any
}

type failure struct {
	method string
	prefix string
	status int
	detail string
}

// TestServer is an in-memory records backend on httptest.
type TestServer struct {
	Server        *httptest.Server
	Token         string
	AdminPassword string

	mu       sync.Mutex
	datasets map[string][]record.Record
	summary  []record.SummaryEntry
	uploads  []map[string]any
	notes    map[string][]record.Record
	requests []Request
	failures []failure
	noBatch  bool
	nextID   int
}

// New starts a fake backend. An empty token disables authentication.
func New(t *testing.T, token string) *TestServer {
	t.Helper()

	ts := &TestServer{
		Token:         token,
		AdminPassword: "admin",
		datasets:      map[string][]record.Record{},
		notes:         map[string][]record.Record{},
		nextID:        1000,
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(ts.Server.Close)
	return ts
}

// URL is the API base URL.
func (ts *TestServer) URL() string {
	return ts.Server.URL + "/api"
}

// Seed replaces the rows of resource (e.g. "nuevos-usuarios").
func (ts *TestServer) Seed(resource string, rows ...record.Record) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	cp := make([]record.Record, len(rows))
	for i, r := range rows {
		cp[i] = r.Clone()
	}
	ts.datasets[resource] = cp
}

// SetSummary sets the corte summary, newest month first.
func (ts *TestServer) SetSummary(entries ...record.SummaryEntry) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.summary = entries
}

// SetObservations sets the review notes of run.
func (ts *TestServer) SetObservations(run string, notes ...record.Record) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.notes[run] = notes
}

// AddUpload appends an upload history entry.
func (ts *TestServer) AddUpload(entry map[string]any) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.uploads = append(ts.uploads, entry)
}

// DisableBatchValidation makes the batch endpoint answer 404.
func (ts *TestServer) DisableBatchValidation() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.noBatch = true
}

// Fail makes requests with method whose path starts with prefix answer
// status with detail. An empty method matches any method.
func (ts *TestServer) Fail(method, prefix string, status int, detail string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failures = append(ts.failures, failure{method: method, prefix: prefix, status: status, detail: detail})
}

// Heal removes every injected failure.
func (ts *TestServer) Heal() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failures = nil
}

// Requests returns the calls received so far.
func (ts *TestServer) Requests() []Request {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slices.Clone(ts.requests)
}

// Count returns how many calls matched method and path prefix.
func (ts *TestServer) Count(method, prefix string) int {
	n := 0
	for _, r := range ts.Requests() {
		if (method == "" || r.Method == method) && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// Rows returns a copy of the rows of resource.
func (ts *TestServer) Rows(resource string) []record.Record {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]record.Record, len(ts.datasets[resource]))
	for i, r := range ts.datasets[resource] {
		out[i] = r.Clone()
	}
	return out
}

func (ts *TestServer) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	var body map[string]any
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON inválido"})
				return
			}
		}
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.requests = append(ts.requests, Request{Method: r.Method, Path: path, Query: query, Body: body})

	if ts.Token != "" && r.Header.Get("Authorization") != "Bearer "+ts.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Las credenciales de autenticación no se proveyeron."})
		return
	}
	for _, f := range ts.failures {
		if (f.method == "" || f.method == r.Method) && strings.HasPrefix(path, f.prefix) {
			writeJSON(w, f.status, map[string]any{"detail": f.detail})
			return
		}
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "nuevos-usuarios/validar-lote/" && r.Method == http.MethodPost:
		ts.validateBatch(w, body)
	case path == "nuevos-usuarios/estadisticas/":
		ts.estadisticas(w)
	case path == "buscar-usuario/":
		ts.lookup(w, query["run"])
	case len(segments) == 3 && segments[0] == "usuarios-no-validados" && segments[2] == "observaciones":
		writeJSON(w, http.StatusOK, ts.notes[segments[1]])
	case path == "historial-cargas/":
		writeJSON(w, http.StatusOK, map[string]any{"count": len(ts.uploads), "results": ts.uploads})
	case len(segments) == 2 && segments[1] == "exportar":
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_export.xlsx"`, segments[0]))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK-fake-xlsx-" + segments[0]))
	case len(segments) == 1:
		ts.collection(w, r.Method, segments[0], query, body)
	case len(segments) == 2:
		ts.item(w, r.Method, segments[0], segments[1], body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No encontrado."})
	}
}

func (ts *TestServer) collection(w http.ResponseWriter, method, resource string, query map[string]string, body map[string]any) {
	switch method {
	case http.MethodGet:
		if query["summary_only"] == "true" {
			writeJSON(w, http.StatusOK, map[string]any{"rows": []any{}, "total": 0, "summary": ts.summary})
			return
		}
		rows := ts.datasets[resource]
		if search := query["search"]; search != "" {
			rows = slices.DeleteFunc(slices.Clone(rows), func(r record.Record) bool {
				return !strings.Contains(rut.Normalize(r.Text("run")), rut.Normalize(search))
			})
		}
		if query["validated_only"] == "true" {
			rows = slices.DeleteFunc(slices.Clone(rows), func(r record.Record) bool {
				return strings.Contains(strings.ToUpper(r.Text("motivo")), "RECHAZADO")
			})
		}
		if rows == nil {
			rows = []record.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"columns": columns(rows), "rows": rows, "total": len(rows)})
	case http.MethodPost:
		ts.create(w, resource, body)
	case http.MethodDelete:
		if !ts.authorized(w, body) {
			return
		}
		month := query["month"]
		before := len(ts.datasets[resource])
		ts.datasets[resource] = slices.DeleteFunc(ts.datasets[resource], func(r record.Record) bool {
			return month == "" || r.Text("month") == month || strings.HasPrefix(r.Text("fechaCorte"), month)
		})
		writeJSON(w, http.StatusOK, map[string]any{"deleted": before - len(ts.datasets[resource])})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": "Método no permitido."})
	}
}

func (ts *TestServer) item(w http.ResponseWriter, method, resource, id string, body map[string]any) {
	rows := ts.datasets[resource]
	i := slices.IndexFunc(rows, func(r record.Record) bool { return r.Text("id") == id })
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No encontrado."})
		return
	}
	switch method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rows[i])
	case http.MethodPatch:
		if run, ok := body["run"].(string); ok && !rut.Validate(run) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"run": []string{"RUN inválido"}})
			return
		}
		for k, v := range body {
			rows[i][k] = v
		}
		writeJSON(w, http.StatusOK, rows[i])
	case http.MethodDelete:
		if !ts.authorized(w, body) {
			return
		}
		ts.datasets[resource] = slices.Delete(rows, i, i+1)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": "Método no permitido."})
	}
}

func (ts *TestServer) authorized(w http.ResponseWriter, body map[string]any) bool {
	if pw, _ := body["admin_password"].(string); pw != ts.AdminPassword {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Contraseña de administrador incorrecta."})
		return false
	}
	return true
}

func (ts *TestServer) create(w http.ResponseWriter, resource string, body map[string]any) {
	raw, _ := body["records"].([]any)
	created, updated, invalid := 0, 0, 0
	for _, item := range raw {
		fields, ok := item.(map[string]any)
		if !ok {
			invalid++
			continue
		}
		rec := record.Record(fields)
		if run := rec.Text("run"); run != "" && !rut.Validate(run) {
			invalid++
			continue
		}
		rows := ts.datasets[resource]
		if i := slices.IndexFunc(rows, func(r record.Record) bool {
			return rec.Text("run") != "" && rut.Normalize(r.Text("run")) == rut.Normalize(rec.Text("run"))
		}); i >= 0 {
			for k, v := range rec {
				rows[i][k] = v
			}
			updated++
			continue
		}
		ts.nextID++
		rec["id"] = float64(ts.nextID)
		ts.datasets[resource] = append(rows, rec)
		created++
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": created, "updated": updated, "invalid": invalid, "total": len(raw)})
}

func (ts *TestServer) validateBatch(w http.ResponseWriter, body map[string]any) {
	if ts.noBatch {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No encontrado."})
		return
	}
	users, _ := body["usuarios"].([]any)
	corte := ts.datasets["corte-fonasa"]
	var results []map[string]any
	updated := 0
	for _, u := range users {
		entry, _ := u.(map[string]any)
		id := record.Record(entry).Text("id")
		run, _ := entry["run"].(string)
		i := slices.IndexFunc(ts.datasets["nuevos-usuarios"], func(r record.Record) bool { return r.Text("id") == id })
		if i < 0 {
			results = append(results, map[string]any{"id": entry["id"], "error": "usuario no encontrado"})
			continue
		}
		estado := "PENDIENTE"
		if slices.ContainsFunc(corte, func(r record.Record) bool { return rut.Normalize(r.Text("run")) == rut.Normalize(run) }) {
			estado = "VALIDADO"
		}
		user := ts.datasets["nuevos-usuarios"][i]
		changed := user.Text("estado") != estado
		if changed {
			user["estado"] = estado
			updated++
		}
		results = append(results, map[string]any{"id": entry["id"], "estado": estado, "actualizado": changed})
	}
	writeJSON(w, http.StatusOK, map[string]any{"resultados": results, "totalProcesados": len(users), "totalActualizados": updated})
}

func (ts *TestServer) estadisticas(w http.ResponseWriter) {
	counts := map[string]int{}
	for _, r := range ts.datasets["nuevos-usuarios"] {
		counts[r.Text("estado")]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":       len(ts.datasets["nuevos-usuarios"]),
		"validados":   counts["VALIDADO"],
		"pendientes":  counts["PENDIENTE"],
		"noValidados": counts["NO_VALIDADO"],
	})
}

func (ts *TestServer) lookup(w http.ResponseWriter, run string) {
	if !rut.Validate(run) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "RUN inválido."})
		return
	}
	found := map[string]any{"run": run}
	for _, resource := range []string{"corte-fonasa", "hp-trakcare", "nuevos-usuarios"} {
		i := slices.IndexFunc(ts.datasets[resource], func(r record.Record) bool {
			return rut.Normalize(r.Text("run")) == rut.Normalize(run)
		})
		if i >= 0 {
			found[resource] = ts.datasets[resource][i]
		} else {
			found[resource] = nil
		}
	}
	writeJSON(w, http.StatusOK, found)
}

func columns(rows []record.Record) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	if cols == nil {
		cols = []string{}
	}
	return cols
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Users builds n nuevos-usuarios rows with sequential ids and valid RUNs.
func Users(n int) []record.Record {
	rows := make([]record.Record, n)
	for i := range rows {
		body := strconv.Itoa(10000000 + i)
		dv, _ := rut.CheckDigit(body)
		rows[i] = record.Record{
			"id":               float64(i + 1),
			"run":              body + "-" + dv,
			"nombreCompleto":   fmt.Sprintf("Usuario %03d", i+1),
			"estado":           "PENDIENTE",
			"creadoEl":         fmt.Sprintf("2025-01-%02dT09:00:00Z", i%28+1),
			"fechaInscripcion": "2025-01-15",
		}
	}
	return rows
}
