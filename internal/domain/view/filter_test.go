package view_test

import (
	"testing"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/stretchr/testify/require"
)

func people() []record.Record {
	return []record.Record{
		{"id": float64(1), "run": "12.345.678-5", "nombreCompleto": "María José Pérez", "estado": "VALIDADO", "fechaCorte": "2024-03-31", "motivo": "Mantiene inscripción"},
		{"id": float64(2), "run": "6000000-K", "nombres": "Jose", "apPaterno": "Soto", "apMaterno": "Rojas", "estado": "PENDIENTE", "fechaCorte": "2024-04-30", "motivo": "TRASLADO POSITIVO"},
		{"id": float64(3), "run": "11111111-2", "nombreCompleto": "Pedro Martinez", "estado": "VALIDADO", "fechaCorte": "2023-04-30", "motivo": "NUEVO INSCRITO"},
		{"id": float64(4), "run": "ABCDEF", "nombreCompleto": "josefina diaz", "estado": "NO_VALIDADO", "fechaCorte": "2024-03-31", "motivo": "MIGRADOS A FONASA"},
		{"id": float64(5), "nombreCompleto": "Sin Run", "estado": "PENDIENTE", "motivo": "mantiene inscripcion"},
	}
}

func ids(rows []record.Record) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Text("id"))
	}
	return out
}

func TestFilterTextMatchesExactlyNormalizedSubstring(t *testing.T) {
	spec := view.ValidadosLayout.Filters
	rows := people()

	st, err := spec.Set(view.FilterState{}, "nombre", "JOSE")
	require.NoError(t, err)

	got := spec.Filter(rows, st)
	require.Equal(t, []string{"1", "2", "4"}, ids(got))

	// A second active filter only narrows the set.
	st2, err := spec.Set(st, "ano", "2024")
	require.NoError(t, err)
	narrowed := spec.Filter(rows, st2)
	require.Equal(t, []string{"1", "2", "4"}, ids(narrowed))

	st3, err := spec.Set(st2, "mes", "03")
	require.NoError(t, err)
	narrowed = spec.Filter(rows, st3)
	require.Equal(t, []string{"1", "4"}, ids(narrowed))
	for _, r := range narrowed {
		require.Contains(t, ids(got), r.Text("id"))
	}
}

func TestFilterZeroStateIsIdentity(t *testing.T) {
	rows := people()
	for _, l := range []view.Layout{view.ValidadosLayout, view.NuevosUsuariosLayout, view.CorteLayout} {
		require.Len(t, l.Filters.Filter(rows, view.FilterState{}), len(rows), l.ID)
	}
}

func TestFilterIdentifierIgnoresPunctuation(t *testing.T) {
	spec := view.FilterSpec{{Name: "run", Kind: view.Identifier, Fields: []string{"run"}}}
	match := func(value, search string) bool {
		st, err := spec.Set(view.FilterState{}, "run", search)
		require.NoError(t, err)
		return spec.Predicate(st)(record.Record{"run": value})
	}

	require.True(t, match("12.345.678-9", "12345678"))
	require.True(t, match("123456789", "12.345.678"))
	require.True(t, match("6.000.000-K", "000-k"))
	require.False(t, match("ABCDEF", "12345678"))
}

func TestFilterEnumAllSentinel(t *testing.T) {
	spec := view.NuevosUsuariosLayout.Filters
	rows := people()

	st, err := spec.Set(view.FilterState{}, "estado", "VALIDADO")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "3"}, ids(spec.Filter(rows, st)))

	st, err = spec.Set(st, "estado", view.AllValue)
	require.NoError(t, err)
	require.Len(t, spec.Filter(rows, st), len(rows))
}

func TestFilterInvalidRUTRecomputesValidity(t *testing.T) {
	spec := view.NuevosUsuariosLayout.Filters
	rows := people()

	st, err := spec.Set(view.FilterState{}, "rutInvalido", "true")
	require.NoError(t, err)
	require.Equal(t, []string{"3", "4", "5"}, ids(spec.Filter(rows, st)))

	// A stored validity flag is not trusted.
	rows[0]["rutValido"] = false
	require.NotContains(t, ids(spec.Filter(rows, st)), "1")
}

func TestFilterTabCountsAndAccentFolding(t *testing.T) {
	l := view.ValidadosLayout
	rows := people()

	counts := l.Filters.TabCounts(rows, l.TabFilter, l.Tabs)
	require.Equal(t, map[string]int{
		view.TabTodos:            5,
		view.TabMantiene:         2,
		view.TabTrasladoPositivo: 1,
		view.TabNuevoInscrito:    1,
		view.TabMigrados:         1,
	}, counts)

	st, err := l.Filters.Set(view.FilterState{}, "motivo", "mantiene inscripción")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "5"}, ids(l.Filters.Filter(rows, st)))
}

func TestFilterUnknownName(t *testing.T) {
	_, err := view.NuevosUsuariosLayout.Filters.Set(view.FilterState{}, "nope", "x")
	require.ErrorIs(t, err, view.ErrUnknownFilter)
}

func TestFilterEnumOptions(t *testing.T) {
	spec := view.ValidadosLayout.Filters
	require.Equal(t, []string{"2023", "2024"}, spec.EnumOptions(people(), "ano"))
	require.Equal(t, []string{"03", "04"}, spec.EnumOptions(people(), "mes"))
}

func TestFilterRestoreTolerant(t *testing.T) {
	spec := view.ValidadosLayout.Filters

	legacy := []byte(`{"run":"123","mes":"13","ano":"all","rutInvalido":true,"centro":42,"unknown":"x"}`)
	st := spec.Restore(legacy)
	require.Equal(t, "123", st.Value("run"))
	require.Equal(t, "13", st.Value("mes"))
	require.Empty(t, st.Value("ano"))
	require.Empty(t, st.Value("centro"))
	require.True(t, st.Toggle("rutInvalido"))

	current := []byte(`{"values":{"nombre":"ana"},"toggles":{"rutInvalido":true}}`)
	st2 := spec.Restore(current)
	require.Equal(t, "ana", st2.Value("nombre"))
	require.True(t, st2.Toggle("rutInvalido"))

	require.True(t, spec.Restore([]byte("not json")).Equal(view.FilterState{}))

	// A month that no longer occurs is dropped instead of hiding every row.
	clean := spec.Sanitize(st, people())
	require.Empty(t, clean.Value("mes"))
	require.Equal(t, "123", clean.Value("run"))
}

func TestFilterStateKeyIsOrderIndependent(t *testing.T) {
	a := view.FilterState{}.WithValue("a", "1").WithValue("b", "2")
	b := view.FilterState{}.WithValue("b", "2").WithValue("a", "1")
	require.Equal(t, a.Key(), b.Key())
	require.True(t, a.Equal(b))
	require.NotEqual(t, a.Key(), a.WithToggle("c", true).Key())
}
