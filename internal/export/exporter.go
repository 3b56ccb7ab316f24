package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/record"
)

// Downloader fetches the backend's own export of a source.
type Downloader interface {
	Export(ctx context.Context, src record.Source, params map[string]any) (api.Download, error)
}

// Result describes a stored export.
type Result struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
	Rows     int    `json:"rows,omitempty"`
	Bytes    int    `json:"bytes"`
}

// Exporter produces spreadsheets and hands them to a sink.
type Exporter struct {
	sink       Sink
	downloader Downloader
	logger     *slog.Logger
	now        func() time.Time
}

// NewExporter creates an exporter. downloader may be nil when only local
// exports are needed.
func NewExporter(sink Sink, downloader Downloader, logger *slog.Logger) *Exporter {
	return &Exporter{sink: sink, downloader: downloader, logger: logger, now: time.Now}
}

// SetClock replaces the clock used for file names.
func (e *Exporter) SetClock(now func() time.Time) { e.now = now }

// ExportRows renders rows locally and stores them as <prefix>_<date>.xlsx.
func (e *Exporter) ExportRows(ctx context.Context, prefix, sheet string, columns []string, rows []record.Record) (Result, error) {
	data, err := Workbook(sheet, columns, rows)
	if err != nil {
		return Result{}, err
	}
	name := Filename(prefix, e.now())
	loc, err := e.sink.Put(ctx, name, data)
	if err != nil {
		return Result{}, err
	}
	if e.logger != nil {
		e.logger.Info("export stored", "file", name, "location", loc, "rows", len(rows))
	}
	return Result{Filename: name, Location: loc, Rows: len(rows), Bytes: len(data)}, nil
}

// ExportBackend stores the backend's export of src.
func (e *Exporter) ExportBackend(ctx context.Context, src record.Source, params map[string]any) (Result, error) {
	if e.downloader == nil {
		return Result{}, fmt.Errorf("backend export not configured")
	}
	dl, err := e.downloader.Export(ctx, src, params)
	if err != nil {
		return Result{}, fmt.Errorf("downloading %s export: %w", src.Name, err)
	}
	name := Filename(src.Name, e.now())
	loc, err := e.sink.Put(ctx, name, dl.Data)
	if err != nil {
		return Result{}, err
	}
	if e.logger != nil {
		e.logger.Info("backend export stored", "source", src.Name, "file", name, "location", loc)
	}
	return Result{Filename: name, Location: loc, Bytes: len(dl.Data)}, nil
}
