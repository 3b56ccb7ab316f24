package record

import "maps"

// Query parameterizes a load. Limit and Offset are only sent when the page
// paginates server-side.
type Query struct {
	Params map[string]any
	Limit  int
	Offset int
}

// Merge returns the request params for src: fixed source params first, then
// query params, then limit/offset when set.
func (q Query) Merge(src Source) map[string]any {
	out := make(map[string]any, len(src.Params)+len(q.Params)+2)
	maps.Copy(out, src.Params)
	maps.Copy(out, q.Params)
	if q.Limit > 0 {
		out["limit"] = q.Limit
		out["offset"] = q.Offset
	}
	return out
}
