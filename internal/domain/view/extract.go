package view

import (
	"fmt"
	"strings"

	"github.com/ganot/inscritos/internal/domain/record"
)

// FirstOf yields the first non-empty field among fields. The backend spells
// several columns more than one way across endpoints.
func FirstOf(fields ...string) func(record.Record) []string {
	return func(r record.Record) []string {
		for _, f := range fields {
			if s := strings.TrimSpace(r.Text(f)); s != "" {
				return []string{s}
			}
		}
		return nil
	}
}

// FullName yields the display name, composing it from its parts when no
// full-name column is present.
func FullName(r record.Record) []string {
	if v := FirstOf("nombreCompleto", "nombre_completo", "nombre")(r); v != nil {
		return v
	}
	parts := make([]string, 0, 3)
	for _, group := range [][]string{
		{"nombres"},
		{"apPaterno", "ap_paterno", "apellidoPaterno"},
		{"apMaterno", "ap_materno", "apellidoMaterno"},
	} {
		if v := FirstOf(group...)(r); v != nil {
			parts = append(parts, v[0])
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []string{strings.Join(parts, " ")}
}

// MonthOf yields the zero-padded month of a record, preferring an explicit
// field over the month of a date field.
func MonthOf(explicit string, dateFields ...string) func(record.Record) []string {
	return func(r record.Record) []string {
		if s := strings.TrimSpace(r.Text(explicit)); s != "" {
			if n, ok := r.Number(explicit); ok {
				return []string{fmt.Sprintf("%02d", int(n))}
			}
			return []string{s}
		}
		for _, f := range dateFields {
			if ts, ok := r.Time(f); ok {
				return []string{fmt.Sprintf("%02d", int(ts.Month()))}
			}
		}
		return nil
	}
}

// YearOf yields the four digit year of a record, preferring an explicit field.
func YearOf(explicit string, dateFields ...string) func(record.Record) []string {
	return func(r record.Record) []string {
		if n, ok := r.Number(explicit); ok && n > 0 {
			return []string{fmt.Sprintf("%d", int(n))}
		}
		for _, f := range dateFields {
			if ts, ok := r.Time(f); ok {
				return []string{fmt.Sprintf("%d", ts.Year())}
			}
		}
		return nil
	}
}
