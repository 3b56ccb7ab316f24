package record

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Record is one row of a dataset: an open field bag keyed by column name.
// Values are string, float64, bool or nil as decoded from the backend.
type Record map[string]any

// Has reports whether field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field rendered as text. ok is false when the field is
// missing or null.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Text is String with missing values rendered as "".
func (r Record) Text(field string) string {
	s, _ := r.String(field)
	return s
}

// Number returns the field as a float64. Numeric strings are parsed.
func (r Record) Number(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"02-01-2006",
	"02/01/2006",
}

// Time parses the field as a timestamp using the formats the backend emits.
func (r Record) Time(field string) (time.Time, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, false
	}
}

// ParseTime tries each known layout in turn.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Key returns the identifying value of the record under keyField.
func (r Record) Key(keyField string) string {
	return r.Text(keyField)
}

// Clone returns a shallow copy. Values are scalars so this is a full copy.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Dataset is one decoded list response from the backend.
type Dataset struct {
	Columns      []string       `json:"columns"`
	Rows         []Record       `json:"rows"`
	Total        int            `json:"total"`
	Validated    int            `json:"validated,omitempty"`
	NonValidated int            `json:"non_validated,omitempty"`
	Summary      []SummaryEntry `json:"summary,omitempty"`
}

// SummaryEntry aggregates one corte period.
type SummaryEntry struct {
	Month        string `json:"month"`
	Label        string `json:"label"`
	Total        int    `json:"total"`
	Validated    int    `json:"validated"`
	NonValidated int    `json:"nonValidated"`
}

// UnmarshalJSON accepts both nonValidated and non_validated.
func (e *SummaryEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Month             string `json:"month"`
		Label             string `json:"label"`
		Total             int    `json:"total"`
		Validated         int    `json:"validated"`
		NonValidated      *int   `json:"nonValidated"`
		NonValidatedSnake *int   `json:"non_validated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = SummaryEntry{
		Month:     raw.Month,
		Label:     raw.Label,
		Total:     raw.Total,
		Validated: raw.Validated,
	}
	switch {
	case raw.NonValidated != nil:
		e.NonValidated = *raw.NonValidated
	case raw.NonValidatedSnake != nil:
		e.NonValidated = *raw.NonValidatedSnake
	}
	return nil
}

// Year and MonthNumber split Month ("YYYY-MM"). Zero when malformed.
func (e SummaryEntry) Year() int {
	y, _, _ := strings.Cut(e.Month, "-")
	n, _ := strconv.Atoi(y)
	return n
}

func (e SummaryEntry) MonthNumber() int {
	_, m, _ := strings.Cut(e.Month, "-")
	n, _ := strconv.Atoi(m)
	return n
}

// Record converts the entry into a row so summary tables can go through the
// same filter/sort/paginate pipeline as regular datasets.
func (e SummaryEntry) Record() Record {
	return Record{
		"month":        e.Month,
		"label":        e.Label,
		"year":         float64(e.Year()),
		"total":        float64(e.Total),
		"validated":    float64(e.Validated),
		"nonValidated": float64(e.NonValidated),
	}
}

// LatestMonth returns the first summary entry month, which the backend
// orders newest first.
func (d Dataset) LatestMonth() (string, bool) {
	if len(d.Summary) == 0 {
		return "", false
	}
	return d.Summary[0].Month, true
}
