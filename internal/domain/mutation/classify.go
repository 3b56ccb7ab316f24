package mutation

import (
	"strconv"
	"strings"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/rut"
)

var nonValidatedMotivos = []string{"TRASLADO NEGATIVO", "RECHAZADO PREVISIONAL"}

func upper(r record.Record, fields ...string) string {
	for _, f := range fields {
		if s := strings.ToUpper(strings.TrimSpace(r.Text(f))); s != "" {
			return s
		}
	}
	return ""
}

// Classify derives the state of a user found in a corte row.
func Classify(row record.Record) Estado {
	motivo := upper(row, "motivo", "motivo_normalizado")
	aceptado := upper(row, "aceptadoRechazado", "aceptado_rechazado")

	switch {
	case strings.Contains(motivo, "FALLECIDO"):
		return EstadoFallecido
	case strings.Contains(aceptado, "RECHAZADO"):
		return EstadoNoValidado
	case motivo != "" && containsAny(motivo, nonValidatedMotivos):
		return EstadoNoValidado
	default:
		// Accepted or simply present in the corte.
		return EstadoValidado
	}
}

// ClassifyMissing derives the state of a user absent from every corte: once
// the latest corte covers the inscription month the user should have
// appeared.
func ClassifyMissing(inscription, latest int) Estado {
	if inscription <= latest {
		return EstadoNoValidado
	}
	return EstadoPendiente
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Period turns "YYYY-MM" or "YYYY-MM-DD" into YYYYMM.
func Period(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 2 {
		return 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return year*100 + month, true
}

func sameRun(a, b string) bool {
	return strings.ToUpper(rut.Normalize(a)) == strings.ToUpper(rut.Normalize(b))
}

// FindRun returns the first row whose run matches.
func FindRun(rows []record.Record, run string) (record.Record, bool) {
	for _, row := range rows {
		if sameRun(row.Text("run"), run) {
			return row, true
		}
	}
	return nil, false
}

func inscriptionDate(user record.Record) string {
	for _, f := range []string{"fechaInscripcion", "fecha_inscripcion", "fechaSolicitud", "fecha_solicitud"} {
		if s := strings.TrimSpace(user.Text(f)); s != "" {
			// Timestamps keep only the date part.
			if d, _, ok := strings.Cut(s, "T"); ok {
				return d
			}
			return s
		}
	}
	return ""
}
