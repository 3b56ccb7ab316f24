package view

import (
	"fmt"

	"github.com/ganot/inscritos/internal/domain/record"
)

// Motivo tabs of the validated users screen.
const (
	TabTodos            = "todos"
	TabMantiene         = "MANTIENE INSCRIPCION"
	TabTrasladoPositivo = "TRASLADO POSITIVO"
	TabNuevoInscrito    = "NUEVO INSCRITO"
	TabMigrados         = "MIGRADOS A FONASA"
)

var corteDateFields = []string{"fechaCorte", "fecha_corte", "fehcaCorte"}

var (
	// NuevosUsuariosLayout is the new-enrollment review screen.
	NuevosUsuariosLayout = Layout{
		ID:     "nuevos-usuarios",
		Title:  "Nuevos usuarios",
		Source: record.NuevosUsuarios,
		Filters: FilterSpec{
			{Name: "run", Kind: Identifier, Fields: []string{"run"}},
			{Name: "nombre", Kind: Text, Values: FullName},
			{Name: "estado", Kind: Enum, Fields: []string{"estado"}},
			{Name: "rutInvalido", Kind: InvalidRUT, Fields: []string{"run"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "creadoEl", Kind: SortDate, Fields: []string{"creadoEl", "creado_el"}},
				{Name: "fechaSolicitud", Kind: SortDate},
				{Name: "nombreCompleto", Kind: SortString, FoldCase: true},
				{Name: "run", Kind: SortString},
				{Name: "estado", Kind: SortString},
			},
			Default:  SortState{Field: "creadoEl", Direction: Desc},
			KeyField: "id",
		},
		PageSize:  10,
		TabFilter: "estado",
		Tabs:      []string{AllValue, "VALIDADO", "PENDIENTE", "NO_VALIDADO", "FALLECIDO"},
		Columns:   []string{"run", "nombreCompleto", "fechaSolicitud", "establecimiento", "estado", "creadoEl"},
	}

	// ValidadosLayout is the validated/non-validated users screen over the cortes.
	ValidadosLayout = Layout{
		ID:     "validados",
		Title:  "Usuarios inscritos validados",
		Source: record.Validados,
		Filters: FilterSpec{
			{Name: "run", Kind: Identifier, Fields: []string{"run"}},
			{Name: "nombre", Kind: Text, Values: FullName},
			{Name: "mes", Kind: Enum, Values: MonthOf("mes", corteDateFields...)},
			{Name: "ano", Kind: Enum, Values: YearOf("ano", corteDateFields...)},
			{Name: "centro", Kind: Enum, Values: FirstOf("centroActual", "nombreCentro", "centro_actual", "centro_salud")},
			{Name: "motivo", Kind: Tab, Values: FirstOf("motivo", "motivo_normalizado", "motivo_original"), All: TabTodos},
			{Name: "rutInvalido", Kind: InvalidRUT, Fields: []string{"run"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "creadoEl", Kind: SortDate, Fields: []string{"creadoEl", "creado_el"}},
				{Name: "fechaCorte", Kind: SortDate, Fields: corteDateFields},
				{Name: "run", Kind: SortString},
				{Name: "nombreCompleto", Kind: SortString, Fields: []string{"nombreCompleto", "nombre_completo", "nombres"}, FoldCase: true},
			},
			Default:  SortState{Field: "creadoEl", Direction: Desc},
			KeyField: "id",
		},
		PageSize:  10,
		TabFilter: "motivo",
		Tabs:      []string{TabTodos, TabMantiene, TabTrasladoPositivo, TabNuevoInscrito, TabMigrados},
		Columns:   []string{"run", "nombreCompleto", "fechaCorte", "nombreCentro", "aceptadoRechazado", "motivo"},
	}

	// CorteLayout lists the raw rows of the FONASA cortes.
	CorteLayout = Layout{
		ID:     "corte-fonasa",
		Title:  "Corte FONASA",
		Source: record.CorteFonasa,
		Filters: FilterSpec{
			{Name: "run", Kind: Identifier, Fields: []string{"run"}},
			{Name: "nombre", Kind: Text, Values: FullName},
			{Name: "mes", Kind: Enum, Values: MonthOf("mes", corteDateFields...)},
			{Name: "ano", Kind: Enum, Values: YearOf("ano", corteDateFields...)},
			{Name: "rutInvalido", Kind: InvalidRUT, Fields: []string{"run"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "creadoEl", Kind: SortDate, Fields: []string{"creadoEl", "creado_el"}},
				{Name: "fechaCorte", Kind: SortDate, Fields: corteDateFields},
				{Name: "run", Kind: SortString},
			},
			Default:  SortState{Field: "creadoEl", Direction: Desc},
			KeyField: "id",
		},
		PageSize: 10,
		Columns:  []string{"run", "nombres", "apPaterno", "apMaterno", "fechaCorte", "nombreCentro", "motivo"},
	}

	// TrakcareLayout is the hospital registry browser.
	TrakcareLayout = Layout{
		ID:     "hp-trakcare",
		Title:  "HP Trakcare",
		Source: record.HPTrakcare,
		Filters: FilterSpec{
			{Name: "run", Kind: Identifier, Fields: []string{"run", "RUN"}},
			{Name: "nombre", Kind: Text, Values: FullName},
			{Name: "centro", Kind: Enum, Values: FirstOf("centroInscripcion", "centro_inscripcion")},
			{Name: "sector", Kind: Enum, Fields: []string{"sector"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "creadoEl", Kind: SortDate, Fields: []string{"creadoEl", "creado_el", "fechaIncorporacion", "fecha_incorporacion"}},
				{Name: "fechaUltimaModif", Kind: SortDate, Fields: []string{"fechaUltimaModif", "fecha_ultima_modif"}},
				{Name: "edad", Kind: SortNumber},
				{Name: "run", Kind: SortString, Fields: []string{"run", "RUN"}},
			},
			Default:  SortState{Field: "creadoEl", Direction: Desc},
			KeyField: "id",
		},
		PageSize: 25,
		Columns:  []string{"run", "nombre", "apPaterno", "apMaterno", "edad", "centroInscripcion", "sector", "prevision"},
	}

	// HistorialLayout is the read-only upload audit log.
	HistorialLayout = Layout{
		ID:     "historial-cargas",
		Title:  "Historial de cargas",
		Source: record.HistorialCargas,
		Filters: FilterSpec{
			{Name: "archivo", Kind: Text, Fields: []string{"nombreArchivo"}},
			{Name: "tipo", Kind: Enum, Fields: []string{"tipo"}},
			{Name: "estado", Kind: Enum, Fields: []string{"estado"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "creadoEl", Kind: SortDate},
				{Name: "registrosProcesados", Kind: SortNumber},
				{Name: "registrosError", Kind: SortNumber},
			},
			Default:  SortState{Field: "creadoEl", Direction: Desc},
			KeyField: "id",
		},
		PageSize: 10,
		Columns:  []string{"creadoEl", "tipo", "nombreArchivo", "registrosProcesados", "registrosExitosos", "registrosError", "estado", "usuarioNombre"},
	}

	// CortesLayout lists one row per uploaded corte period, built from the
	// summary of the corte-fonasa listing.
	CortesLayout = Layout{
		ID:     "cortes",
		Title:  "Cortes cargados",
		Source: record.CorteFonasa,
		Filters: FilterSpec{
			{Name: "buscar", Kind: Text, Fields: []string{"label", "month"}},
			{Name: "ano", Kind: Enum, Fields: []string{"year"}},
		},
		Sort: SortSpec{
			Fields: []SortField{
				{Name: "fecha", Kind: SortString, Fields: []string{"month"}},
				{Name: "total", Kind: SortNumber},
				{Name: "validated", Kind: SortNumber},
				{Name: "nonValidated", Kind: SortNumber},
			},
			Default:  SortState{Field: "fecha", Direction: Desc},
			KeyField: "month",
		},
		PageSize: 12,
		Columns:  []string{"month", "label", "total", "validated", "nonValidated"},
		Rows:     SummaryRows,
	}
)

var layouts = map[string]Layout{
	NuevosUsuariosLayout.ID: NuevosUsuariosLayout,
	ValidadosLayout.ID:      ValidadosLayout,
	CorteLayout.ID:          CorteLayout,
	TrakcareLayout.ID:       TrakcareLayout,
	HistorialLayout.ID:      HistorialLayout,
	CortesLayout.ID:         CortesLayout,
}

// LookupLayout resolves a page identity.
func LookupLayout(id string) (Layout, error) {
	l, ok := layouts[id]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnknownPage, id)
	}
	return l, nil
}

// LayoutIDs lists the known pages in menu order.
func LayoutIDs() []string {
	return []string{
		CortesLayout.ID,
		CorteLayout.ID,
		ValidadosLayout.ID,
		NuevosUsuariosLayout.ID,
		TrakcareLayout.ID,
		HistorialLayout.ID,
	}
}

// SummaryRows converts a corte summary into rows for CortesLayout.
func SummaryRows(ds record.Dataset) []record.Record {
	rows := make([]record.Record, 0, len(ds.Summary))
	for _, e := range ds.Summary {
		rows = append(rows, e.Record())
	}
	return rows
}
