package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/domain/upload"
	"github.com/ganot/inscritos/internal/domain/view"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. It returns nil for errors
// it does not know.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, view.ErrUnknownPage):
		return &APIError{Code: "UNKNOWN_PAGE", Message: err.Error(), RecoveryHint: "Call list_pages for valid page ids"}
	case errors.Is(err, view.ErrUnknownFilter):
		return &APIError{Code: "UNKNOWN_FILTER", Message: err.Error(), RecoveryHint: "Read inscritos://docs/pages for the filters of each page"}
	case errors.Is(err, view.ErrUnsortableField):
		return &APIError{Code: "UNSORTABLE_FIELD", Message: err.Error(), RecoveryHint: "Sort by one of the page's sortable fields"}
	case errors.Is(err, view.ErrInvalidPageSize):
		return &APIError{Code: "INVALID_PAGE_SIZE", Message: err.Error(), RecoveryHint: "Use a page size of at least 1"}
	case errors.Is(err, session.ErrNotLoaded):
		return &APIError{Code: "NOT_LOADED", Message: "page not loaded", RecoveryHint: "Call load_dataset first"}
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "page session not found", RecoveryHint: "Call load_dataset to open the page"}
	case errors.Is(err, record.ErrRecordNotFound):
		return &APIError{Code: "RECORD_NOT_FOUND", Message: "record not found", RecoveryHint: "Check the id against query_view results"}
	case errors.Is(err, record.ErrMissingColumn), errors.Is(err, record.ErrMissingKey), errors.Is(err, record.ErrDuplicateKey):
		return &APIError{Code: "INVALID_DATASET", Message: err.Error(), RecoveryHint: "The backend answered with malformed data; previous rows are kept"}
	case errors.Is(err, mutation.ErrInvalidRUT):
		return &APIError{Code: "INVALID_RUN", Message: "RUN inválido", RecoveryHint: "Check the verification digit"}
	case errors.Is(err, ErrImportDisabled):
		return &APIError{Code: "IMPORT_DISABLED", Message: err.Error(), RecoveryHint: "Send the workbook bytes instead, or set import.dir on the server"}
	case errors.Is(err, mutation.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Fix the input; nothing was sent"}
	case errors.Is(err, mutation.ErrBusy):
		return &APIError{Code: "BUSY", Message: "the same operation is already running", RecoveryHint: "Wait for it to finish"}
	case errors.Is(err, mutation.ErrCancelled):
		return &APIError{Code: "CANCELLED", Message: "Operación cancelada", RecoveryHint: "Repeat with confirm=true and admin_password"}
	case errors.Is(err, mutation.ErrReloadFailed):
		return &APIError{Code: "RELOAD_FAILED", Message: err.Error(), RecoveryHint: "The write was applied; call load_dataset to refresh"}
	case errors.Is(err, mutation.ErrNoCorte):
		return &APIError{Code: "NO_CORTE", Message: "no hay corte FONASA cargado", RecoveryHint: "Upload a corte before validating"}
	case errors.Is(err, upload.ErrInvalidFilter):
		return &APIError{Code: "INVALID_FILTER", Message: err.Error(), RecoveryHint: "Dates are YYYY-MM-DD"}
	}
	var backendErr *api.Error
	if errors.As(err, &backendErr) {
		code := "BACKEND_ERROR"
		if backendErr.Status == 0 {
			code = "BACKEND_UNREACHABLE"
		}
		return &APIError{
			Code:    code,
			Message: backendErr.UserMessage("No se pudo conectar con el servidor"),
			Details: map[string]any{"status": backendErr.Status},
		}
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
