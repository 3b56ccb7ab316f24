package view

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ganot/inscritos/internal/domain/record"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Reverse flips the direction.
func (d Direction) Reverse() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortKind selects how field values compare.
type SortKind int

const (
	SortString SortKind = iota
	SortNumber
	SortDate
)

// SortField declares one sortable column.
type SortField struct {
	Name string
	Kind SortKind
	// Fields are read in order; the first present one supplies the value.
	// Defaults to Name.
	Fields   []string
	FoldCase bool
}

func (f SortField) fields() []string {
	if len(f.Fields) > 0 {
		return f.Fields
	}
	return []string{f.Name}
}

// SortState is the active sort of a page.
type SortState struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// SortSpec is a page's sort allow-list.
type SortSpec struct {
	Fields  []SortField
	Default SortState
	// KeyField breaks ties so the order is total.
	KeyField string
}

// Lookup finds a sortable field.
func (s SortSpec) Lookup(name string) (SortField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SortField{}, false
}

// Toggle applies a click on field: the same field flips direction, a new
// field starts descending. Unknown fields are rejected and cur is returned.
func (s SortSpec) Toggle(cur SortState, field string) (SortState, error) {
	if _, ok := s.Lookup(field); !ok {
		return cur, fmt.Errorf("%w: %s", ErrUnsortableField, field)
	}
	if cur.Field == field {
		return SortState{Field: field, Direction: cur.Direction.Reverse()}, nil
	}
	return SortState{Field: field, Direction: Desc}, nil
}

// Set applies an explicit field and direction, keeping cur when the field is
// not allowed.
func (s SortSpec) Set(cur SortState, field string, dir Direction) (SortState, error) {
	if _, ok := s.Lookup(field); !ok {
		return cur, fmt.Errorf("%w: %s", ErrUnsortableField, field)
	}
	if dir != Asc {
		dir = Desc
	}
	return SortState{Field: field, Direction: dir}, nil
}

// Normalize replaces an unknown state with the default.
func (s SortSpec) Normalize(st SortState) SortState {
	if _, ok := s.Lookup(st.Field); !ok {
		return s.Default
	}
	if st.Direction != Asc && st.Direction != Desc {
		st.Direction = Desc
	}
	return st
}

var epoch = time.Unix(0, 0).UTC()

type sortKey struct {
	num float64
	ts  time.Time
	str string
}

func (f SortField) key(r record.Record) sortKey {
	for _, name := range f.fields() {
		if !r.Has(name) {
			continue
		}
		switch f.Kind {
		case SortNumber:
			n, _ := r.Number(name)
			return sortKey{num: n}
		case SortDate:
			ts, ok := r.Time(name)
			if !ok {
				ts = epoch
			}
			return sortKey{ts: ts}
		default:
			s := r.Text(name)
			if f.FoldCase {
				s = strings.ToLower(s)
			}
			return sortKey{str: s}
		}
	}
	return sortKey{ts: epoch}
}

func (f SortField) compare(a, b sortKey) int {
	switch f.Kind {
	case SortNumber:
		return cmp.Compare(a.num, b.num)
	case SortDate:
		return a.ts.Compare(b.ts)
	default:
		return strings.Compare(a.str, b.str)
	}
}

func compareKeys(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}

// Sort returns rows ordered by st in a new slice. The sort is stable and, when
// KeyField is set, ties are broken by key so reversing the direction reverses
// the sequence exactly.
func (s SortSpec) Sort(rows []record.Record, st SortState) []record.Record {
	st = s.Normalize(st)
	field, ok := s.Lookup(st.Field)
	out := slices.Clone(rows)
	if !ok {
		return out
	}

	type item struct {
		rec record.Record
		key sortKey
		id  string
	}
	items := make([]item, len(out))
	for i, r := range out {
		items[i] = item{rec: r, key: field.key(r)}
		if s.KeyField != "" {
			items[i].id = r.Key(s.KeyField)
		}
	}

	sign := 1
	if st.Direction == Desc {
		sign = -1
	}
	slices.SortStableFunc(items, func(a, b item) int {
		if c := field.compare(a.key, b.key); c != 0 {
			return sign * c
		}
		if s.KeyField == "" {
			return 0
		}
		return sign * compareKeys(a.id, b.id)
	})

	for i := range items {
		out[i] = items[i].rec
	}
	return out
}
