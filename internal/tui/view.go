package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/ganot/inscritos/internal/notify"
)

const helpText = "/ buscar · 1-9 pestañas · e/+/- selector · i RUT inválido · s/S orden · ←/→ página · [/] sección · r recargar · c limpiar · v validar · x exportar · q salir"

// View renders the dashboard.
func (m Model) View() string {
	v := m.sess.View()

	var b strings.Builder
	b.WriteString(m.renderPages())
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(v.Title))
	b.WriteString("\n\n")

	if line := m.renderFilters(v); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if line := m.renderTabs(v); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.loading && !v.Loaded:
		b.WriteString(emptyStyle.Render("Cargando..."))
	case !v.Loaded:
		b.WriteString(emptyStyle.Render("Sin datos. Presiona r para cargar."))
	case v.Filtered == 0:
		b.WriteString(emptyStyle.Render("No hay registros que coincidan con los filtros."))
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	b.WriteString(footerStyle.Render(renderFooter(v)))
	b.WriteString("\n")
	if m.busy != "" {
		b.WriteString(filteringStyle.Render(m.busy + "..."))
		b.WriteString("\n")
	}
	for _, n := range m.opts.Notices.Active() {
		b.WriteString(renderNotice(n))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(helpText))
	return b.String()
}

func (m Model) renderPages() string {
	parts := make([]string, len(m.pageIDs))
	for i, id := range m.pageIDs {
		if i == m.pageIdx {
			parts[i] = activePageTabStyle.Render(id)
		} else {
			parts[i] = pageTabStyle.Render(id)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderFilters(v session.View) string {
	var parts []string
	for i, fi := range m.inputs {
		if i == m.focus {
			parts = append(parts, fi.input.View())
			continue
		}
		val := v.Input.Value(fi.name)
		if val == "" {
			val = "-"
		}
		parts = append(parts, labelStyle.Render(fi.name+": ")+val)
	}

	for i, f := range m.enumFilters() {
		val := v.State.Filters.Value(f.Name)
		if val == "" {
			val = view.AllValue
		}
		label := f.Name + ": " + val
		if i == m.enumIdx {
			parts = append(parts, activeStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, labelStyle.Render(label))
		}
	}

	for _, f := range m.sess.Layout().Filters {
		if f.Kind == view.InvalidRUT && v.State.Filters.Toggle(f.Name) {
			parts = append(parts, activeStyle.Render("solo RUT inválidos"))
		}
	}
	if v.IsFiltering {
		parts = append(parts, filteringStyle.Render("filtrando..."))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderTabs(v session.View) string {
	layout := m.sess.Layout()
	if layout.TabFilter == "" || len(layout.Tabs) == 0 {
		return ""
	}
	active := v.State.Filters.Value(layout.TabFilter)

	parts := make([]string, len(layout.Tabs))
	for i, tab := range layout.Tabs {
		label := fmt.Sprintf("%d %s (%d)", i+1, tab, v.TabCounts[tab])
		selected := tab == active || (active == "" && i == 0)
		if selected {
			parts[i] = activePageTabStyle.Render(label)
		} else {
			parts[i] = pageTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderFooter(v session.View) string {
	if !v.Loaded {
		return ""
	}

	var links []string
	for _, l := range v.Window {
		switch {
		case l.Ellipsis:
			links = append(links, "…")
		case l.Current:
			links = append(links, activeStyle.Render(strconv.Itoa(l.Number)))
		default:
			links = append(links, strconv.Itoa(l.Number))
		}
	}

	arrow := "↓"
	if v.State.Sort.Direction == view.Asc {
		arrow = "↑"
	}
	text := fmt.Sprintf("Mostrando %d–%d de %d", v.From, v.To, v.Filtered)
	if v.Filtered != v.Total && v.Total > 0 {
		text += fmt.Sprintf(" (total %d)", v.Total)
	}
	text = fmt.Sprintf("%s · Página %d/%d: %s · orden: %s %s",
		text, v.Page, v.TotalPages, strings.Join(links, " "), v.State.Sort.Field, arrow)
	if v.LoadState == record.StateStale {
		text += " · " + staleStyle.Render("datos desactualizados")
	}
	return text
}

func renderNotice(n notify.Notice) string {
	switch n.Level {
	case notify.LevelError:
		return errNoticeStyle.Render("✗ " + n.Message)
	case notify.LevelSuccess:
		return okNoticeStyle.Render("✓ " + n.Message)
	default:
		return infoNoticeStyle.Render("• " + n.Message)
	}
}
