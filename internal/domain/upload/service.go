package upload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const defaultPageSize = 20

// Service lists upload history.
type Service struct {
	lister Lister
	logger *slog.Logger
}

// NewService creates a history service.
func NewService(lister Lister, logger *slog.Logger) *Service {
	return &Service{lister: lister, logger: logger}
}

// List validates the filter and fetches one page of history.
func (s *Service) List(ctx context.Context, filter Filter) (Page, error) {
	if err := validateFilter(filter); err != nil {
		return Page{}, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}

	page, err := s.lister.Uploads(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("listing uploads: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("uploads listed", "count", page.Count, "page", filter.Page)
	}
	return page, nil
}

func validateFilter(f Filter) error {
	if f.Tipo != "" && !slices.Contains([]string{TipoUsuarios, TipoCortes}, f.Tipo) {
		return fmt.Errorf("%w: tipo %q", ErrInvalidFilter, f.Tipo)
	}
	if f.Estado != "" && !slices.Contains([]string{EstadoCompletado, EstadoProcesando, EstadoError}, f.Estado) {
		return fmt.Errorf("%w: estado %q", ErrInvalidFilter, f.Estado)
	}

	var from, to time.Time
	var err error
	if f.FechaDesde != "" {
		if from, err = time.Parse(time.DateOnly, f.FechaDesde); err != nil {
			return fmt.Errorf("%w: fecha_desde %q", ErrInvalidFilter, f.FechaDesde)
		}
	}
	if f.FechaHasta != "" {
		if to, err = time.Parse(time.DateOnly, f.FechaHasta); err != nil {
			return fmt.Errorf("%w: fecha_hasta %q", ErrInvalidFilter, f.FechaHasta)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("%w: fecha_hasta before fecha_desde", ErrInvalidFilter)
	}
	return nil
}
