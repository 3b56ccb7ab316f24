// Package tui is the terminal dashboard over the enrollment pages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/ganot/inscritos/internal/export"
	"github.com/ganot/inscritos/internal/notify"
)

// DefaultDebounce is the pause after typing before a text filter applies.
const DefaultDebounce = 250 * time.Millisecond

// Pages opens page sessions.
type Pages interface {
	Open(ctx context.Context, pageID string) (*session.Session, error)
}

// Validator checks users against the FONASA cortes.
type Validator interface {
	BulkValidate(ctx context.Context, t mutation.Target, users []record.Record, opts mutation.BulkOptions) (mutation.Report, error)
}

// Exporter writes the visible rows of a page to a workbook.
type Exporter interface {
	ExportRows(ctx context.Context, prefix, sheet string, columns []string, rows []record.Record) (export.Result, error)
}

// Options configures the dashboard.
type Options struct {
	Pages     Pages
	Validator Validator
	Exporter  Exporter
	Notices   *notify.Center
	Debounce  time.Duration
	// Start is the page shown first; defaults to the first layout.
	Start  string
	Logger *slog.Logger
}

type filterInput struct {
	name  string
	input textinput.Model
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	opts    Options
	pageIDs []string
	pageIdx int
	sess    *session.Session

	inputs []filterInput
	// focus indexes inputs; -1 means the table has focus.
	focus   int
	enumIdx int

	table   table.Model
	loading bool
	busy    string
	width   int
	height  int
}

// New builds the dashboard and opens the start page.
func New(opts Options) (Model, error) {
	if opts.Pages == nil {
		return Model{}, errors.New("tui: pages are required")
	}
	if opts.Notices == nil {
		opts.Notices = notify.NewCenter(notify.DefaultTTL)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	m := Model{
		opts:    opts,
		pageIDs: view.LayoutIDs(),
		focus:   -1,
		table:   table.New(table.WithFocused(true), table.WithHeight(12)),
	}
	if opts.Start != "" {
		m.pageIdx = slices.Index(m.pageIDs, opts.Start)
		if m.pageIdx < 0 {
			return Model{}, fmt.Errorf("%w: %s", view.ErrUnknownPage, opts.Start)
		}
	}
	if err := m.openPage(m.pageIdx); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Init does nothing: data is only fetched when the user presses r.
func (m Model) Init() tea.Cmd {
	return nil
}

// Session returns the page currently shown.
func (m Model) Session() *session.Session {
	return m.sess
}

func (m *Model) openPage(idx int) error {
	sess, err := m.opts.Pages.Open(context.Background(), m.pageIDs[idx])
	if err != nil {
		return err
	}
	m.pageIdx = idx
	m.sess = sess
	m.focus = -1
	m.enumIdx = 0
	m.inputs = nil

	input := sess.View().Input
	for _, f := range sess.Layout().Filters {
		if f.Kind != view.Text && f.Kind != view.Identifier {
			continue
		}
		ti := textinput.New()
		ti.Prompt = f.Name + ": "
		ti.Placeholder = "buscar"
		ti.CharLimit = 64
		ti.Width = 20
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.SetValue(input.Value(f.Name))
		m.inputs = append(m.inputs, filterInput{name: f.Name, input: ti})
	}
	m.refresh()
	return nil
}

func (m Model) loadCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		_, err := sess.Load(context.Background())
		return loadedMsg{Page: sess.ID(), Err: err}
	}
}

func (m Model) settleCmd(gen uint64) tea.Cmd {
	page := m.sess.ID()
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return settleMsg{Page: page, Gen: gen}
	})
}

func (m Model) noticeTick() tea.Cmd {
	return tea.Tick(notify.DefaultTTL, func(time.Time) tea.Msg {
		return noticeTickMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-12, 3))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.focus >= 0 {
			return m.handleFilterKey(msg)
		}
		return m.handleTableKey(msg)

	case loadedMsg:
		if msg.Page != m.sess.ID() {
			return m, nil
		}
		m.loading = false
		m.refresh()
		if msg.Err != nil {
			m.opts.Logger.Warn("page load failed", "page", msg.Page, "error", msg.Err)
		}
		if _, shown := m.opts.Notices.Report(msg.Err, "No se pudieron cargar los datos"); shown {
			return m, m.noticeTick()
		}
		return m, nil

	case settleMsg:
		if msg.Page == m.sess.ID() && m.sess.Settle(msg.Gen) {
			m.refresh()
		}
		return m, nil

	case validatedMsg:
		m.busy = ""
		if msg.Page == m.sess.ID() {
			m.refresh()
		}
		if msg.Err == nil || errors.Is(msg.Err, mutation.ErrReloadFailed) {
			m.opts.Notices.Success(fmt.Sprintf("%d validados, %d actualizados, %d fallidos",
				msg.Report.TotalChecked, msg.Report.TotalUpdated, msg.Report.Failed))
		}
		m.opts.Notices.Report(msg.Err, "No se pudo validar")
		return m, m.noticeTick()

	case exportedMsg:
		m.busy = ""
		if msg.Err != nil {
			m.opts.Notices.Report(msg.Err, "No se pudo exportar")
		} else {
			m.opts.Notices.Success(fmt.Sprintf("Exportadas %d filas a %s", msg.Result.Rows, msg.Result.Location))
		}
		return m, m.noticeTick()

	case noticeTickMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.blur()
		return m, nil
	case "enter":
		m.sess.Flush(context.Background())
		m.blur()
		m.refresh()
		return m, nil
	case "tab":
		m.inputs[m.focus].input.Blur()
		m.focus++
		if m.focus >= len(m.inputs) {
			m.focus = -1
			m.table.Focus()
			return m, nil
		}
		return m, m.inputs[m.focus].input.Focus()
	}

	fi := &m.inputs[m.focus]
	before := fi.input.Value()
	var cmd tea.Cmd
	fi.input, cmd = fi.input.Update(msg)
	if fi.input.Value() == before {
		return m, cmd
	}

	gen, err := m.sess.SetFilter(fi.name, fi.input.Value())
	if err != nil {
		m.opts.Notices.Report(err, "Filtro no válido")
		return m, tea.Batch(cmd, m.noticeTick())
	}
	m.refresh()
	if gen == 0 {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.settleCmd(gen))
}

func (m *Model) blur() {
	if m.focus >= 0 {
		m.inputs[m.focus].input.Blur()
	}
	m.focus = -1
	m.table.Focus()
}

func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	key := msg.String()

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "/":
		if len(m.inputs) == 0 {
			return m, nil
		}
		m.focus = 0
		m.table.Blur()
		return m, m.inputs[0].input.Focus()

	case "r":
		m.loading = true
		return m, m.loadCmd()

	case "]", "[":
		step := 1
		if key == "[" {
			step = len(m.pageIDs) - 1
		}
		if err := m.openPage((m.pageIdx + step) % len(m.pageIDs)); err != nil {
			m.opts.Notices.Report(err, "No se pudo abrir la página")
			return m, m.noticeTick()
		}
		m.loading = false
		return m, nil

	case "left", "h", "right", "l":
		delta := 1
		if key == "left" || key == "h" {
			delta = -1
		}
		return m, m.apply(m.sess.GoTo(ctx, m.sess.State().Page.Index+delta))

	case "s":
		return m, m.apply(m.sess.ToggleSort(ctx, m.nextSortField()))

	case "S":
		return m, m.apply(m.sess.ToggleSort(ctx, m.sess.State().Sort.Field))

	case "e":
		if enums := m.enumFilters(); len(enums) > 0 {
			m.enumIdx = (m.enumIdx + 1) % len(enums)
		}
		return m, nil

	case "+", "-":
		return m, m.cycleEnum(key == "-")

	case "i":
		for _, f := range m.sess.Layout().Filters {
			if f.Kind == view.InvalidRUT {
				on := m.sess.State().Filters.Toggle(f.Name)
				return m, m.apply(m.sess.ApplyFilter(ctx, f.Name, strconv.FormatBool(!on)))
			}
		}
		return m, nil

	case "c":
		m.sess.ClearFilters(ctx)
		for i := range m.inputs {
			m.inputs[i].input.SetValue("")
		}
		m.refresh()
		return m, nil

	case "esc":
		for _, n := range m.opts.Notices.Active() {
			m.opts.Notices.Dismiss(n.ID)
		}
		return m, nil

	case "v":
		return m.validate()

	case "x":
		return m.export()
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		layout := m.sess.Layout()
		if layout.TabFilter != "" && n <= len(layout.Tabs) {
			return m, m.apply(m.sess.ApplyFilter(ctx, layout.TabFilter, layout.Tabs[n-1]))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// apply refreshes after a local state change, reporting err if any.
func (m *Model) apply(err error) tea.Cmd {
	m.refresh()
	if _, shown := m.opts.Notices.Report(err, "Operación no válida"); shown {
		return m.noticeTick()
	}
	return nil
}

func (m Model) nextSortField() string {
	spec := m.sess.Layout().Sort
	cur := m.sess.State().Sort.Field
	i := slices.IndexFunc(spec.Fields, func(f view.SortField) bool { return f.Name == cur })
	return spec.Fields[(i+1)%len(spec.Fields)].Name
}

func (m Model) enumFilters() []view.Filter {
	layout := m.sess.Layout()
	var out []view.Filter
	for _, f := range layout.Filters {
		if f.Kind == view.Enum && f.Name != layout.TabFilter {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) cycleEnum(back bool) tea.Cmd {
	enums := m.enumFilters()
	if len(enums) == 0 {
		return nil
	}
	name := enums[m.enumIdx%len(enums)].Name
	options := append([]string{view.AllValue}, m.sess.EnumOptions(name)...)
	cur := m.sess.State().Filters.Value(name)
	if cur == "" {
		cur = view.AllValue
	}
	i := slices.Index(options, cur)
	if back {
		i += len(options) - 1
	} else {
		i++
	}
	return m.apply(m.sess.ApplyFilter(context.Background(), name, options[i%len(options)]))
}

func (m Model) validate() (tea.Model, tea.Cmd) {
	if m.sess.ID() != view.NuevosUsuariosLayout.ID {
		m.opts.Notices.Info("La validación masiva solo está disponible en Nuevos usuarios")
		return m, m.noticeTick()
	}
	if m.opts.Validator == nil || m.busy != "" {
		return m, nil
	}
	if !m.sess.Store().IsLoaded() {
		m.opts.Notices.Info("Carga los datos antes de validar")
		return m, m.noticeTick()
	}

	m.busy = "Validando usuarios"
	sess, validator := m.sess, m.opts.Validator
	users := sess.Rows()
	return m, func() tea.Msg {
		report, err := validator.BulkValidate(context.Background(), sess, users, mutation.BulkOptions{})
		return validatedMsg{Page: sess.ID(), Report: report, Err: err}
	}
}

func (m Model) export() (tea.Model, tea.Cmd) {
	if m.opts.Exporter == nil || m.busy != "" {
		return m, nil
	}
	if !m.sess.Store().IsLoaded() {
		m.opts.Notices.Info("No hay datos para exportar")
		return m, m.noticeTick()
	}

	m.busy = "Exportando"
	v := m.sess.View()
	rows, exporter := m.sess.Visible(), m.opts.Exporter
	return m, func() tea.Msg {
		res, err := exporter.ExportRows(context.Background(), v.PageID, v.Title, v.Columns, rows)
		return exportedMsg{Result: res, Err: err}
	}
}

// refresh rebuilds the table from the current view.
func (m *Model) refresh() {
	v := m.sess.View()
	width := 18
	if m.width > 0 && len(v.Columns) > 0 {
		width = max(m.width/len(v.Columns)-2, 8)
	}

	cols := make([]table.Column, len(v.Columns))
	for i, c := range v.Columns {
		cols[i] = table.Column{Title: c, Width: width}
	}
	rows := make([]table.Row, len(v.Items))
	for i, item := range v.Items {
		row := make(table.Row, len(v.Columns))
		for j, c := range v.Columns {
			row[j] = cellText(item, c)
		}
		rows[i] = row
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// cellText shortens timestamps to minutes; plain dates are kept as sent.
func cellText(r record.Record, field string) string {
	s := r.Text(field)
	if len(s) <= len(time.DateOnly) {
		return s
	}
	if ts, ok := r.Time(field); ok {
		return ts.Format("2006-01-02 15:04")
	}
	return s
}
