package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ParseDataset decodes a list response. Besides the {columns, rows, total}
// table shape it accepts a paginated {count, results} envelope and a bare
// array, which older endpoints still return.
func ParseDataset(data []byte) (Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Dataset{}, nil
	}

	if trimmed[0] == '[' {
		var rows []Record
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return Dataset{}, fmt.Errorf("decode rows: %w", err)
		}
		return finishDataset(Dataset{Rows: rows, Total: len(rows)}), nil
	}

	var raw struct {
		Columns      []string       `json:"columns"`
		Rows         []Record       `json:"rows"`
		Results      []Record       `json:"results"`
		Total        *int           `json:"total"`
		Count        *int           `json:"count"`
		Validated    int            `json:"validated"`
		NonValidated int            `json:"non_validated"`
		Summary      []SummaryEntry `json:"summary"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}

	ds := Dataset{
		Columns:      raw.Columns,
		Rows:         raw.Rows,
		Validated:    raw.Validated,
		NonValidated: raw.NonValidated,
		Summary:      raw.Summary,
	}
	if ds.Rows == nil {
		ds.Rows = raw.Results
	}
	switch {
	case raw.Total != nil:
		ds.Total = *raw.Total
	case raw.Count != nil:
		ds.Total = *raw.Count
	default:
		ds.Total = len(ds.Rows)
	}
	return finishDataset(ds), nil
}

func finishDataset(ds Dataset) Dataset {
	if ds.Rows == nil {
		ds.Rows = []Record{}
	}
	if len(ds.Columns) == 0 && len(ds.Rows) > 0 {
		seen := make(map[string]struct{})
		for _, row := range ds.Rows {
			for k := range row {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					ds.Columns = append(ds.Columns, k)
				}
			}
		}
		slices.Sort(ds.Columns)
	}
	return ds
}
