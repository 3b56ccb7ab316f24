package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/rut"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Gateway turns user actions into backend writes. It never patches local
// state: every successful write is followed by a full reload of the page
// that issued it.
type Gateway struct {
	backend     Backend
	activity    ActivityLogger
	logger      *slog.Logger
	concurrency int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithActivity records every outcome through logger.
func WithActivity(a ActivityLogger) Option {
	return func(g *Gateway) { g.activity = a }
}

// WithConcurrency bounds the per-user fallback of BulkValidate.
func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGateway creates a gateway writing through backend.
func NewGateway(backend Backend, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		backend:     backend,
		logger:      logger,
		concurrency: defaultConcurrency,
		inflight:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Busy reports whether a mutation of kind is running for target.
func (g *Gateway) Busy(kind Kind, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[string(kind)+":"+target]
	return ok
}

func (g *Gateway) begin(kind Kind, target string) (func(), error) {
	key := string(kind) + ":" + target
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	g.inflight[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
	}, nil
}

func newIntent(kind Kind, src record.Source, target string, payload map[string]any) Intent {
	return Intent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    src.Name,
		Target:    target,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

var activityTypes = map[Kind]activity.ActivityType{
	KindUpdate:       activity.TypeRecordUpdated,
	KindIngest:       activity.TypeRecordsIngested,
	KindDelete:       activity.TypeDatasetDeleted,
	KindBulkValidate: activity.TypeBulkValidated,
}

func (g *Gateway) record(ctx context.Context, in Intent, err error, summary string, details any) {
	outcome := activity.OutcomeSucceeded
	switch {
	case errors.Is(err, ErrCancelled):
		outcome = activity.OutcomeCancelled
	case errors.Is(err, ErrBusy), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRUT):
		outcome = activity.OutcomeRejected
	case err != nil && !errors.Is(err, ErrReloadFailed):
		outcome = activity.OutcomeFailed
	}
	if err != nil && summary == "" {
		summary = err.Error()
	}

	if g.logger != nil {
		g.logger.Info("mutation finished", "intent", in.ID, "kind", in.Kind, "source", in.Source, "target", in.Target, "outcome", outcome)
	}
	if g.activity == nil {
		return
	}
	entry := &activity.ActivityEntry{
		IntentID:     in.ID,
		ActivityType: activityTypes[in.Kind],
		Source:       in.Source,
		Target:       in.Target,
		Outcome:      outcome,
		Summary:      summary,
	}
	if details != nil {
		if b, jerr := json.Marshal(details); jerr == nil {
			entry.Details = string(b)
		}
	}
	// Logging must not turn a finished write into a failure.
	if lerr := g.activity.LogActivity(context.WithoutCancel(ctx), entry); lerr != nil && g.logger != nil {
		g.logger.Warn("failed to log activity", "intent", in.ID, "error", lerr)
	}
}

func (g *Gateway) reload(ctx context.Context, t Target) error {
	if err := t.Reload(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

// UpdateRecord sends the edited fields of one record. Empty strings are sent
// as null. The page is reloaded before UpdateRecord returns successfully.
func (g *Gateway) UpdateRecord(ctx context.Context, t Target, id string, fields map[string]any) (Intent, error) {
	src := t.Source()
	id = strings.TrimSpace(id)
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			payload[k] = nil
			continue
		}
		payload[k] = v
	}
	in := newIntent(KindUpdate, src, id, payload)
	in.Keys = []string{id}

	if err := validateUpdate(id, payload); err != nil {
		g.record(ctx, in, err, "", nil)
		return in, err
	}

	done, err := g.begin(KindUpdate, src.Name+"/"+id)
	if err != nil {
		g.record(ctx, in, err, "", nil)
		return in, err
	}
	defer done()

	if _, err := g.backend.Patch(ctx, src, id, payload); err != nil {
		err = fmt.Errorf("updating %s %s: %w", src.Name, id, err)
		g.record(ctx, in, err, "", nil)
		return in, err
	}

	err = g.reload(ctx, t)
	g.record(ctx, in, err, "registro actualizado", payload)
	return in, err
}

func validateUpdate(id string, payload map[string]any) error {
	if id == "" {
		return fmt.Errorf("%w: missing record id", ErrInvalidInput)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if v, ok := payload["run"]; ok {
		s, _ := v.(string)
		if s == "" {
			return fmt.Errorf("%w: run cannot be cleared", ErrInvalidInput)
		}
		if !rut.Validate(s) {
			return fmt.Errorf("%w: %s", ErrInvalidRUT, s)
		}
	}
	return nil
}

// Ingest uploads already decoded rows to the page's resource.
func (g *Gateway) Ingest(ctx context.Context, t Target, rows []record.Record) (IngestResult, error) {
	src := t.Source()
	in := newIntent(KindIngest, src, "", map[string]any{"records": len(rows)})

	if len(rows) == 0 {
		err := fmt.Errorf("%w: no records to upload", ErrInvalidInput)
		g.record(ctx, in, err, "", nil)
		return IngestResult{}, err
	}

	done, err := g.begin(KindIngest, src.Name)
	if err != nil {
		g.record(ctx, in, err, "", nil)
		return IngestResult{}, err
	}
	defer done()

	res, err := g.backend.Create(ctx, src, rows)
	if err != nil {
		err = fmt.Errorf("uploading %s: %w", src.Name, err)
		g.record(ctx, in, err, "", nil)
		return IngestResult{}, err
	}

	err = g.reload(ctx, t)
	g.record(ctx, in, err, fmt.Sprintf("%d creados, %d actualizados, %d inválidos", res.Created, res.Updated, res.Invalid), res)
	return res, err
}

// Consequence is the confirmation text shown before deleting target.
func Consequence(target DeleteTarget) string {
	return fmt.Sprintf("ATENCIÓN: Esta acción eliminará PERMANENTEMENTE todos los registros de %s. Esta operación NO se puede deshacer.", target.label())
}

// DeleteDataset removes a corte period, a record or a whole base. The user
// must accept the consequence and then supply the administrator password;
// declining either step returns ErrCancelled without contacting the backend.
func (g *Gateway) DeleteDataset(ctx context.Context, t Target, target DeleteTarget, c Confirmer) (Intent, error) {
	if target.Source.Name == "" {
		target.Source = t.Source()
	}
	in := newIntent(KindDelete, target.Source, target.key(), nil)

	if g.Busy(KindDelete, target.key()) {
		err := fmt.Errorf("%w: %s", ErrBusy, target.key())
		g.record(ctx, in, err, "", nil)
		return in, err
	}

	ok, err := c.Confirm(ctx, Consequence(target))
	if err != nil || !ok {
		g.record(ctx, in, ErrCancelled, "Operación cancelada", nil)
		return in, ErrCancelled
	}
	password, err := c.Password(ctx, "Ingresa la contraseña de administrador para confirmar:")
	if err != nil || password == "" {
		g.record(ctx, in, ErrCancelled, "Operación cancelada", nil)
		return in, ErrCancelled
	}

	done, err := g.begin(KindDelete, target.key())
	if err != nil {
		g.record(ctx, in, err, "", nil)
		return in, err
	}
	defer done()

	req := DeleteRequest{ID: target.ID, AdminPassword: password}
	if target.Month != "" {
		req.Params = map[string]any{"month": target.Month}
	}
	if err := g.backend.Delete(ctx, target.Source, req); err != nil {
		err = fmt.Errorf("deleting %s: %w", target.key(), err)
		g.record(ctx, in, err, "", nil)
		return in, err
	}

	err = g.reload(ctx, t)
	g.record(ctx, in, err, target.label()+" eliminado correctamente", nil)
	return in, err
}

// BulkOptions tunes BulkValidate.
type BulkOptions struct {
	// Progress is called after each user of the per-user fallback.
	Progress func(done, total int)
}

// BulkValidate checks users against the FONASA cortes. The batch endpoint is
// tried first; if it fails every user is classified individually with
// bounded concurrency, tolerating individual failures. The page is reloaded
// exactly once at the end, only if something was processed.
func (g *Gateway) BulkValidate(ctx context.Context, t Target, users []record.Record, opts BulkOptions) (Report, error) {
	src := t.Source()
	in := newIntent(KindBulkValidate, src, src.Name, nil)

	done, err := g.begin(KindBulkValidate, src.Name)
	if err != nil {
		g.record(ctx, in, err, "", nil)
		return Report{}, err
	}
	defer done()

	var withID []record.Record
	for _, u := range users {
		if strings.TrimSpace(u.Text("id")) != "" {
			withID = append(withID, u)
		}
	}
	in.Payload = map[string]any{"usuarios": len(withID)}
	if len(withID) == 0 {
		g.record(ctx, in, nil, "sin usuarios para validar", Report{Mode: ModeBatch})
		return Report{Mode: ModeBatch}, nil
	}

	report, err := g.validateBatch(ctx, withID)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("batch validation failed, validating individually", "error", err)
		}
		report, err = g.validateEach(ctx, withID, opts.Progress)
		if err != nil {
			err = fmt.Errorf("validating users: %w", err)
			g.record(ctx, in, err, "", nil)
			return report, err
		}
	}

	err = g.reload(ctx, t)
	g.record(ctx, in, err, fmt.Sprintf("%d validados, %d actualizados, %d fallidos", report.TotalChecked, report.TotalUpdated, report.Failed), report)
	return report, err
}

func (g *Gateway) validateBatch(ctx context.Context, users []record.Record) (Report, error) {
	entries := make([]BatchEntry, 0, len(users))
	before := make(map[string]Estado, len(users))
	for _, u := range users {
		entries = append(entries, BatchEntry{ID: u["id"], Run: u.Text("run"), FechaInscripcion: inscriptionDate(u)})
		before[u.Text("id")] = Estado(u.Text("estado"))
	}

	res, err := g.backend.ValidateBatch(ctx, entries)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		TotalChecked: res.TotalProcesados,
		TotalUpdated: res.TotalActualizados,
		Mode:         ModeBatch,
	}
	for _, item := range res.Resultados {
		id := record.Record{"id": item.ID}.Text("id")
		report.Results = append(report.Results, ItemResult{
			ID:      id,
			Before:  before[id],
			After:   item.Estado,
			Updated: item.Actualizado,
			Error:   item.Error,
		})
		if item.Error != "" {
			report.Failed++
		}
	}
	return report, nil
}

func (g *Gateway) validateEach(ctx context.Context, users []record.Record, progress func(done, total int)) (Report, error) {
	summary, err := g.backend.Fetch(ctx, record.CorteFonasa, record.Query{Params: map[string]any{"summary_only": true}})
	if err != nil {
		return Report{Mode: ModeIndividual}, fmt.Errorf("loading corte summary: %w", err)
	}
	month, ok := summary.LatestMonth()
	if !ok {
		return Report{Mode: ModeIndividual}, ErrNoCorte
	}
	latest, ok := Period(month)
	if !ok {
		return Report{Mode: ModeIndividual}, fmt.Errorf("%w: malformed month %q", ErrNoCorte, month)
	}

	results := make([]ItemResult, len(users))
	var finished atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, u := range users {
		eg.Go(func() error {
			results[i] = g.validateOne(ctx, u, latest)
			if progress != nil {
				progress(int(finished.Add(1)), len(users))
			}
			return nil
		})
	}
	_ = eg.Wait()

	report := Report{TotalChecked: len(users), Mode: ModeIndividual, Results: results}
	for _, r := range results {
		switch {
		case r.Error != "":
			report.Failed++
		case r.Updated:
			report.TotalUpdated++
		}
	}
	return report, nil
}

func (g *Gateway) validateOne(ctx context.Context, u record.Record, latest int) ItemResult {
	id := u.Text("id")
	current := Estado(u.Text("estado"))
	res := ItemResult{ID: id, Before: current, After: current}

	inscription, ok := Period(inscriptionDate(u))
	if !ok {
		return res
	}

	next := EstadoPendiente
	if inscription <= latest {
		run := u.Text("run")
		found, err := g.backend.Fetch(ctx, record.CorteFonasa, record.Query{Params: map[string]any{"search": run, "all": true}})
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if row, ok := FindRun(found.Rows, run); ok {
			next = Classify(row)
		} else {
			next = ClassifyMissing(inscription, latest)
		}
	}
	res.After = next
	if next == current {
		return res
	}

	if _, err := g.backend.Patch(ctx, record.NuevosUsuarios, id, map[string]any{"estado": string(next)}); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Updated = true
	return res
}
