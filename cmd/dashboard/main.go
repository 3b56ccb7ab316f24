package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/config"
	"github.com/ganot/inscritos/internal/domain/activity"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/ganot/inscritos/internal/export"
	"github.com/ganot/inscritos/internal/notify"
	"github.com/ganot/inscritos/internal/sqlite"
	"github.com/ganot/inscritos/internal/tui"
)

func main() {
	start := flag.String("page", view.NuevosUsuariosLayout.ID, "page shown first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs only go to a file.
	logWriter := io.Discard
	if cfg.Log.Path != "" {
		if dir := filepath.Dir(cfg.Log.Path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer f.Close()
			logWriter = f
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		fmt.Fprintf(os.Stderr, "migration error: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(api.Options{
		BaseURL:           cfg.API.URL,
		Token:             cfg.API.Token,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logger,
	})
	sessions := session.NewService(client, logger,
		session.WithStateRepository(sqlite.NewViewStateRepository(db)),
		session.WithPageSize(cfg.Dashboard.PageSize),
	)
	defer sessions.CloseAll()

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	model, err := tui.New(tui.Options{
		Pages: sessions,
		Validator: mutation.NewGateway(client, logger,
			mutation.WithActivity(activitySvc),
			mutation.WithConcurrency(cfg.Dashboard.Concurrency),
		),
		Exporter: export.NewExporter(export.FileSink{Dir: cfg.Export.Dir}, client, logger),
		Notices:  notify.NewCenter(notify.DefaultTTL),
		Debounce: cfg.Dashboard.Debounce,
		Start:    *start,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		os.Exit(1)
	}
}
