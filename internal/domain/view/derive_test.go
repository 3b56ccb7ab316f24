package view_test

import (
	"fmt"
	"testing"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/view"
	"github.com/stretchr/testify/require"
)

// hundredUsers has exactly three runs containing 12345678 once punctuation is removed.
func hundredUsers() []record.Record {
	special := map[int]string{17: "12.345.678-5", 42: "112.345.678-2", 88: "512345678-1"}
	rows := make([]record.Record, 100)
	for i := range rows {
		run := fmt.Sprintf("7.%03d.%03d-%d", i, i, i%10)
		if s, ok := special[i]; ok {
			run = s
		}
		rows[i] = record.Record{
			"id":             float64(i + 1),
			"run":            run,
			"nombreCompleto": fmt.Sprintf("Usuario %d", i),
			"creadoEl":       fmt.Sprintf("2024-01-01T00:%02d:00Z", i%60),
		}
	}
	return rows
}

func snapshot(rows []record.Record, version uint64) record.Snapshot {
	return record.Snapshot{Dataset: record.Dataset{Rows: rows, Total: len(rows)}, Version: version}
}

func TestDeriveScenarioRunFilter(t *testing.T) {
	l := view.NuevosUsuariosLayout
	rows := hundredUsers()
	deriver := view.NewDeriver(l)

	st := l.NewState()
	st = l.GoTo(st, 4, len(rows))
	require.Equal(t, 4, st.Page.Index)

	deferred := view.NewDeferred(st.Filters)
	next, err := l.Filters.Set(deferred.Immediate(), "run", "12345678")
	require.NoError(t, err)
	gen := deferred.Set(next)
	require.True(t, deferred.IsFiltering())

	require.True(t, deferred.Settle(gen))
	require.False(t, deferred.IsFiltering())

	st = l.WithFilters(st, deferred.Effective())
	require.Equal(t, 1, st.Page.Index)

	res := deriver.Derive(snapshot(rows, 1), st)
	require.Len(t, res.Rows, 3)
	require.ElementsMatch(t, []string{"18", "43", "89"}, ids(res.Rows))
	require.Equal(t, 1, res.Page.TotalPages)
	require.Equal(t, 1, res.Page.Index)
}

func TestDeferredFinalResultIndependentOfKeystrokes(t *testing.T) {
	l := view.NuevosUsuariosLayout
	rows := hundredUsers()
	deferred := view.NewDeferred(view.FilterState{})

	final := "12.345.678"
	var gens []uint64
	for i := 1; i <= len(final); i++ {
		st, err := l.Filters.Set(deferred.Immediate(), "run", final[:i])
		require.NoError(t, err)
		gens = append(gens, deferred.Set(st))
	}

	// Timers for earlier keystrokes fire late and are ignored.
	for _, g := range gens[:len(gens)-1] {
		require.False(t, deferred.Settle(g))
		require.True(t, deferred.IsFiltering())
	}
	require.True(t, deferred.Settle(gens[len(gens)-1]))
	require.False(t, deferred.IsFiltering())

	direct, err := l.Filters.Set(view.FilterState{}, "run", final)
	require.NoError(t, err)

	st := l.NewState()
	viaDeferred := l.Derive(rows, l.WithFilters(st, deferred.Effective()))
	once := l.Derive(rows, l.WithFilters(st, direct))
	require.Equal(t, ids(once.Rows), ids(viaDeferred.Rows))
	require.Equal(t, ids(once.Page.Items), ids(viaDeferred.Page.Items))
}

func TestDeferredFlush(t *testing.T) {
	d := view.NewDeferred(view.FilterState{})
	d.Set(view.FilterState{}.WithValue("nombre", "ana"))
	require.True(t, d.IsFiltering())
	require.Equal(t, "ana", d.Flush().Value("nombre"))
	require.False(t, d.IsFiltering())
	require.Equal(t, uint64(1), d.Generation())
}

func TestDeriverMemoizesOnVersion(t *testing.T) {
	l := view.NuevosUsuariosLayout
	deriver := view.NewDeriver(l)
	st := l.NewState()

	rows := hundredUsers()
	first := deriver.Derive(snapshot(rows, 1), st)
	require.Len(t, first.Rows, 100)

	// Same version: cached list, only re-sliced.
	st2 := l.GoTo(st, 2, len(first.Rows))
	second := deriver.Derive(snapshot(rows[:10], 1), st2)
	require.Len(t, second.Rows, 100)
	require.Equal(t, 2, second.Page.Index)

	third := deriver.Derive(snapshot(rows[:10], 2), st)
	require.Len(t, third.Rows, 10)
}

func TestDerivePageResetsOnStateChanges(t *testing.T) {
	l := view.ValidadosLayout
	st := l.GoTo(l.NewState(), 3, 100)
	require.Equal(t, 3, st.Page.Index)

	filtered, err := l.SetFilter(st, "nombre", "ana")
	require.NoError(t, err)
	require.Equal(t, 1, filtered.Page.Index)

	sorted, err := l.ToggleSort(st, "run")
	require.NoError(t, err)
	require.Equal(t, 1, sorted.Page.Index)

	resized, err := l.SetPageSize(st, 25)
	require.NoError(t, err)
	require.Equal(t, view.PageState{Index: 1, Size: 25}, resized.Page)

	_, err = l.SetPageSize(st, 0)
	require.ErrorIs(t, err, view.ErrInvalidPageSize)

	rejected, err := l.ToggleSort(st, "admin_password")
	require.ErrorIs(t, err, view.ErrUnsortableField)
	require.Equal(t, st, rejected)

	same, err := l.SetFilter(st, "nombre", "")
	require.NoError(t, err)
	require.Equal(t, 3, same.Page.Index)
}

func TestCortesLayoutUsesSummary(t *testing.T) {
	ds := record.Dataset{Summary: []record.SummaryEntry{
		{Month: "2024-05", Label: "Mayo 2024", Total: 10, Validated: 7, NonValidated: 3},
		{Month: "2023-12", Label: "Diciembre 2023", Total: 5},
		{Month: "2024-01", Label: "Enero 2024", Total: 8},
	}}
	l := view.CortesLayout
	st := l.NewState()
	res := l.Derive(l.RowsOf(ds), st)
	require.Equal(t, []string{"2024-05", "2024-01", "2023-12"}, []string{
		res.Rows[0].Text("month"), res.Rows[1].Text("month"), res.Rows[2].Text("month"),
	})

	st, err := l.SetFilter(st, "ano", "2024")
	require.NoError(t, err)
	require.Len(t, l.Derive(l.RowsOf(ds), st).Rows, 2)
}
