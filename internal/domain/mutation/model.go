package mutation

import (
	"time"

	"github.com/ganot/inscritos/internal/domain/record"
)

// Kind is the type of write an Intent performs.
type Kind string

const (
	KindUpdate       Kind = "update"
	KindIngest       Kind = "ingest"
	KindDelete       Kind = "delete"
	KindBulkValidate Kind = "bulk_validate"
)

// Intent describes one pending write. It is discarded once the write and the
// reload that follows it have finished.
type Intent struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Source    string         `json:"source"`
	Target    string         `json:"target,omitempty"`
	Keys      []string       `json:"keys,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Estado is a newly enrolled user's validation state.
type Estado string

const (
	EstadoValidado   Estado = "VALIDADO"
	EstadoNoValidado Estado = "NO_VALIDADO"
	EstadoPendiente  Estado = "PENDIENTE"
	EstadoFallecido  Estado = "FALLECIDO"
)

// IngestResult is the backend's answer to a bulk upload.
type IngestResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Invalid int `json:"invalid"`
	Total   int `json:"total"`
}

// BatchEntry is one user sent to the batch validation endpoint.
type BatchEntry struct {
	ID               any    `json:"id"`
	Run              string `json:"run"`
	FechaInscripcion string `json:"fechaInscripcion"`
}

// BatchItem is the backend's verdict for one BatchEntry.
type BatchItem struct {
	ID          any    `json:"id"`
	Estado      Estado `json:"estado"`
	Actualizado bool   `json:"actualizado"`
	Error       string `json:"error,omitempty"`
}

// BatchResult is the batch validation response.
type BatchResult struct {
	Resultados        []BatchItem `json:"resultados"`
	TotalProcesados   int         `json:"totalProcesados"`
	TotalActualizados int         `json:"totalActualizados"`
}

// Validation modes.
const (
	ModeBatch      = "lote"
	ModeIndividual = "individual"
)

// ItemResult is the outcome for one user of a bulk validation.
type ItemResult struct {
	ID      string `json:"id"`
	Before  Estado `json:"estadoAnterior,omitempty"`
	After   Estado `json:"estadoNuevo,omitempty"`
	Updated bool   `json:"actualizado"`
	Error   string `json:"error,omitempty"`
}

// Report aggregates a bulk validation.
type Report struct {
	TotalChecked int          `json:"totalValidados"`
	TotalUpdated int          `json:"totalActualizados"`
	Failed       int          `json:"fallidos"`
	Mode         string       `json:"modo"`
	Results      []ItemResult `json:"resultados,omitempty"`
}

// DeleteTarget names what a destructive delete removes. Month selects one
// corte period; ID selects a single record; neither deletes the whole base.
type DeleteTarget struct {
	Source record.Source
	Month  string
	ID     string
	Label  string
}

// DeleteRequest is sent to the backend.
type DeleteRequest struct {
	ID            string
	Params        map[string]any
	AdminPassword string
}

func (t DeleteTarget) key() string {
	switch {
	case t.ID != "":
		return t.Source.Name + "/" + t.ID
	case t.Month != "":
		return t.Source.Name + "?month=" + t.Month
	default:
		return t.Source.Name
	}
}

func (t DeleteTarget) label() string {
	if t.Label != "" {
		return t.Label
	}
	switch {
	case t.Month != "":
		return "el corte " + t.Month
	case t.ID != "":
		return "el registro " + t.ID
	default:
		return "la base " + t.Source.Name
	}
}
