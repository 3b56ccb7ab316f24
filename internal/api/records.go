package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/domain/record"
)

const validateBatchPath = "nuevos-usuarios/validar-lote/"

// Fetch lists a source. It satisfies record.Fetcher.
func (c *Client) Fetch(ctx context.Context, src record.Source, q record.Query) (record.Dataset, error) {
	resp, err := c.do(ctx, http.MethodGet, src.Name, src.Path, q.Merge(src), nil)
	if err != nil {
		return record.Dataset{}, err
	}
	ds, err := record.ParseDataset(resp.body)
	if err != nil {
		return record.Dataset{}, &Error{Status: resp.status, Err: err}
	}
	return ds, nil
}

// Patch updates fields of one record and returns the stored record.
func (c *Client) Patch(ctx context.Context, src record.Source, id string, fields map[string]any) (record.Record, error) {
	resp, err := c.do(ctx, http.MethodPatch, src.Name, DetailURL(src.Path, id), nil, fields)
	if err != nil {
		return nil, err
	}
	var out record.Record
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create uploads decoded rows.
func (c *Client) Create(ctx context.Context, src record.Source, rows []record.Record) (mutation.IngestResult, error) {
	resp, err := c.do(ctx, http.MethodPost, src.Name, src.Path, nil, map[string]any{"records": rows})
	if err != nil {
		return mutation.IngestResult{}, err
	}
	var out mutation.IngestResult
	if err := decode(resp, &out); err != nil {
		return mutation.IngestResult{}, err
	}
	return out, nil
}

// Delete removes a record, a corte month or a whole base.
func (c *Client) Delete(ctx context.Context, src record.Source, req mutation.DeleteRequest) error {
	path := src.Path
	if req.ID != "" {
		path = DetailURL(src.Path, req.ID)
	}
	_, err := c.do(ctx, http.MethodDelete, src.Name, path, req.Params, map[string]any{"admin_password": req.AdminPassword})
	return err
}

// ValidateBatch calls the batch validation endpoint.
func (c *Client) ValidateBatch(ctx context.Context, entries []mutation.BatchEntry) (mutation.BatchResult, error) {
	resp, err := c.do(ctx, http.MethodPost, record.NuevosUsuarios.Name, validateBatchPath, nil, map[string]any{"usuarios": entries})
	if err != nil {
		return mutation.BatchResult{}, err
	}
	var out mutation.BatchResult
	if err := decode(resp, &out); err != nil {
		return mutation.BatchResult{}, err
	}
	if out.TotalProcesados == 0 && len(out.Resultados) > 0 {
		out.TotalProcesados = len(out.Resultados)
	}
	return out, nil
}

// Estadisticas returns the counters of newly enrolled users.
func (c *Client) Estadisticas(ctx context.Context) (record.Record, error) {
	var out record.Record
	if err := c.getJSON(ctx, record.NuevosUsuarios.Name, record.NuevosUsuarios.Path+"estadisticas/", nil, &out); err != nil {
		return nil, fmt.Errorf("estadisticas: %w", err)
	}
	return out, nil
}
