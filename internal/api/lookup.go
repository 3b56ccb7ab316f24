package api

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/domain/upload"
)

// LookupRun searches every base for one RUN.
func (c *Client) LookupRun(ctx context.Context, run string) (record.Record, error) {
	var out record.Record
	if err := c.getJSON(ctx, "buscar-usuario", "buscar-usuario/", map[string]any{"run": run}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Observations returns the review notes of a non-validated user.
func (c *Client) Observations(ctx context.Context, run string) ([]record.Record, error) {
	p := "usuarios-no-validados/" + url.PathEscape(run) + "/observaciones/"
	resp, err := c.do(ctx, http.MethodGet, "usuarios-no-validados", p, nil, nil)
	if err != nil {
		return nil, err
	}
	ds, err := record.ParseDataset(resp.body)
	if err != nil {
		return nil, &Error{Status: resp.status, Err: err}
	}
	return ds.Rows, nil
}

// Uploads lists the upload history. It satisfies upload.Lister.
func (c *Client) Uploads(ctx context.Context, filter upload.Filter) (upload.Page, error) {
	var page upload.Page
	if err := c.getJSON(ctx, record.HistorialCargas.Name, record.HistorialCargas.Path, filter.Params(), &page); err != nil {
		return upload.Page{}, err
	}
	if page.Results == nil {
		page.Results = []upload.Upload{}
	}
	return page, nil
}

// Download is an exported file.
type Download struct {
	Filename string
	Data     []byte
}

// Export downloads the backend export of src. When the backend gives no
// file name one is derived from the source and today's date.
func (c *Client) Export(ctx context.Context, src record.Source, params map[string]any) (Download, error) {
	resp, err := c.do(ctx, http.MethodGet, src.Name, path.Join(src.Path, "exportar")+"/", params, nil)
	if err != nil {
		return Download{}, err
	}
	name := resp.filename
	if name == "" {
		name = src.Name + "_" + time.Now().Format(time.DateOnly) + ".xlsx"
	}
	return Download{Filename: name, Data: resp.body}, nil
}
