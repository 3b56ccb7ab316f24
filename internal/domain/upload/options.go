package upload

// Filter selects history entries. Dates are YYYY-MM-DD.
type Filter struct {
	Tipo       string
	Estado     string
	FechaDesde string
	FechaHasta string
	Page       int
	PageSize   int
}

// Params renders the filter as query parameters, omitting empty fields.
func (f Filter) Params() map[string]any {
	params := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("tipo", f.Tipo)
	set("estado", f.Estado)
	set("fecha_desde", f.FechaDesde)
	set("fecha_hasta", f.FechaHasta)
	if f.Page > 0 {
		params["page"] = f.Page
	}
	if f.PageSize > 0 {
		params["page_size"] = f.PageSize
	}
	return params
}
