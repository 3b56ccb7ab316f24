package record

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateDataset checks required columns and key uniqueness once per load so
// accessors never need to.
func ValidateDataset(src Source, ds Dataset) error {
	if len(ds.Rows) == 0 {
		return nil
	}
	for _, col := range src.Required {
		if !slices.Contains(ds.Columns, col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	if src.KeyField == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(ds.Rows))
	for i, row := range ds.Rows {
		key := strings.TrimSpace(row.Key(src.KeyField))
		if key == "" {
			return fmt.Errorf("%w: row %d", ErrMissingKey, i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
