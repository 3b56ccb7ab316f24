package mcp

import (
	"context"
	"log/slog"

	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/upload"
	"github.com/ganot/inscritos/internal/export"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionService defines page session operations needed by MCP.
type SessionService interface {
	Open(ctx context.Context, pageID string) (*session.Session, error)
	List() []session.Info
}

// MutationService defines the write operations needed by MCP.
type MutationService interface {
	UpdateRecord(ctx context.Context, t mutation.Target, id string, fields map[string]any) (mutation.Intent, error)
	Ingest(ctx context.Context, t mutation.Target, rows []record.Record) (mutation.IngestResult, error)
	DeleteDataset(ctx context.Context, t mutation.Target, target mutation.DeleteTarget, c mutation.Confirmer) (mutation.Intent, error)
	BulkValidate(ctx context.Context, t mutation.Target, users []record.Record, opts mutation.BulkOptions) (mutation.Report, error)
}

// LookupService finds a person across the backend's sources.
type LookupService interface {
	LookupRun(ctx context.Context, run string) (record.Record, error)
}

// UploadService lists the upload history.
type UploadService interface {
	List(ctx context.Context, filter upload.Filter) (upload.Page, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// ExportService writes spreadsheets of pages.
type ExportService interface {
	ExportRows(ctx context.Context, prefix, sheet string, columns []string, rows []record.Record) (export.Result, error)
	ExportBackend(ctx context.Context, src record.Source, params map[string]any) (export.Result, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sessions  SessionService
	Mutations MutationService
	Lookup    LookupService
	Uploads   UploadService
	Activity  ActivityService
	Exports   ExportService
}

// Config contains server configuration.
type Config struct {
	Services Services
	Version  string
	Logger   *slog.Logger
	// ImportDir holds workbooks that ingest_records may read by name.
	ImportDir string
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "inscritos",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services, cfg.ImportDir))

	return server
}
