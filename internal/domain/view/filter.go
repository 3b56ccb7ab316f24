package view

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/rut"
)

// AllValue is the select sentinel meaning "do not filter on this field".
const AllValue = "all"

// FilterKind selects how a filter matches.
type FilterKind int

const (
	// Text is a case and accent insensitive substring match.
	Text FilterKind = iota
	// Identifier compares national IDs with punctuation stripped on both sides.
	Identifier
	// Enum is an exact match; the All sentinel disables it.
	Enum
	// Tab is an uppercase accent-stripped substring match used for category tabs.
	Tab
	// InvalidRUT is a toggle keeping only records whose ID fails check-digit validation.
	InvalidRUT
)

// Filter declares one filterable input of a page.
type Filter struct {
	Name   string
	Kind   FilterKind
	Fields []string
	// Values overrides Fields when candidates are derived, e.g. month of a date.
	Values func(record.Record) []string
	// All is the sentinel for Enum and Tab filters; defaults to AllValue.
	All string
}

func (f Filter) all() string {
	if f.All != "" {
		return f.All
	}
	return AllValue
}

func (f Filter) candidates(r record.Record) []string {
	if f.Values != nil {
		return f.Values(r)
	}
	out := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		if s, ok := r.String(field); ok {
			out = append(out, s)
		}
	}
	return out
}

// FilterSpec is the ordered set of filters a page declares.
type FilterSpec []Filter

// Lookup finds a filter by name.
func (s FilterSpec) Lookup(name string) (Filter, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

// FilterState holds the current filter inputs. It is plain data so it can be
// persisted and compared.
type FilterState struct {
	Values  map[string]string `json:"values,omitempty"`
	Toggles map[string]bool   `json:"toggles,omitempty"`
}

// Value returns the input for name, "" when unset.
func (s FilterState) Value(name string) string {
	return s.Values[name]
}

// Toggle returns the toggle for name.
func (s FilterState) Toggle(name string) bool {
	return s.Toggles[name]
}

// WithValue returns a copy with name set to value.
func (s FilterState) WithValue(name, value string) FilterState {
	out := s.clone()
	if value == "" {
		delete(out.Values, name)
	} else {
		out.Values[name] = value
	}
	return out
}

// WithToggle returns a copy with the toggle set.
func (s FilterState) WithToggle(name string, on bool) FilterState {
	out := s.clone()
	if on {
		out.Toggles[name] = true
	} else {
		delete(out.Toggles, name)
	}
	return out
}

// Equal compares two states ignoring nil versus empty maps.
func (s FilterState) Equal(o FilterState) bool {
	return maps.Equal(nonNil(s.Values), nonNil(o.Values)) && maps.Equal(nonNilBool(s.Toggles), nonNilBool(o.Toggles))
}

func (s FilterState) clone() FilterState {
	out := FilterState{
		Values:  make(map[string]string, len(s.Values)+1),
		Toggles: make(map[string]bool, len(s.Toggles)+1),
	}
	maps.Copy(out.Values, s.Values)
	maps.Copy(out.Toggles, s.Toggles)
	return out
}

// Key is a stable string form used for memoization.
func (s FilterState) Key() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(s.Values)) {
		fmt.Fprintf(&b, "%s=%q;", k, s.Values[k])
	}
	for _, k := range slices.Sorted(maps.Keys(s.Toggles)) {
		if s.Toggles[k] {
			fmt.Fprintf(&b, "%s!;", k)
		}
	}
	return b.String()
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilBool(m map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

// Set applies a value for a declared filter.
func (s FilterSpec) Set(st FilterState, name, value string) (FilterState, error) {
	f, ok := s.Lookup(name)
	if !ok {
		return st, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	if f.Kind == InvalidRUT {
		on := value == "true" || value == "1" || value == "on"
		return st.WithToggle(name, on), nil
	}
	if (f.Kind == Enum || f.Kind == Tab) && value == f.all() {
		value = ""
	}
	return st.WithValue(name, value), nil
}

type matcher func(record.Record) bool

// Predicate builds the visibility test for st. Active filters are ANDed; the
// zero state matches everything.
func (s FilterSpec) Predicate(st FilterState) func(record.Record) bool {
	var active []matcher
	for _, f := range s {
		if m := f.matcher(st); m != nil {
			active = append(active, m)
		}
	}
	return func(r record.Record) bool {
		for _, m := range active {
			if !m(r) {
				return false
			}
		}
		return true
	}
}

func (f Filter) matcher(st FilterState) matcher {
	switch f.Kind {
	case InvalidRUT:
		if !st.Toggle(f.Name) {
			return nil
		}
		return func(r record.Record) bool {
			for _, c := range f.candidates(r) {
				if rut.Validate(c) {
					return false
				}
			}
			return true
		}
	case Identifier:
		want := rut.Normalize(st.Value(f.Name))
		if want == "" {
			return nil
		}
		return func(r record.Record) bool {
			for _, c := range f.candidates(r) {
				if strings.Contains(rut.Normalize(c), want) {
					return true
				}
			}
			return false
		}
	case Enum:
		want := st.Value(f.Name)
		if want == "" || want == f.all() {
			return nil
		}
		return func(r record.Record) bool {
			return slices.Contains(f.candidates(r), want)
		}
	case Tab:
		raw := st.Value(f.Name)
		if raw == "" || raw == f.all() {
			return nil
		}
		want := foldTab(raw)
		return func(r record.Record) bool {
			for _, c := range f.candidates(r) {
				if strings.Contains(foldTab(c), want) {
					return true
				}
			}
			return false
		}
	default:
		want := foldText(strings.TrimSpace(st.Value(f.Name)))
		if want == "" {
			return nil
		}
		return func(r record.Record) bool {
			for _, c := range f.candidates(r) {
				if strings.Contains(foldText(c), want) {
					return true
				}
			}
			return false
		}
	}
}

// Filter returns the records visible under st, preserving order.
func (s FilterSpec) Filter(rows []record.Record, st FilterState) []record.Record {
	keep := s.Predicate(st)
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// EnumOptions lists the distinct non-empty values of an Enum filter present in rows.
func (s FilterSpec) EnumOptions(rows []record.Record, name string) []string {
	f, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	for _, r := range rows {
		for _, c := range f.candidates(r) {
			if c != "" {
				seen[c] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// TabCounts counts the records matching each tab value of a Tab filter. The
// All sentinel counts every row.
func (s FilterSpec) TabCounts(rows []record.Record, name string, tabs []string) map[string]int {
	f, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	counts := make(map[string]int, len(tabs))
	for _, tab := range tabs {
		m := f.matcher(FilterState{Values: map[string]string{name: tab}})
		if m == nil {
			counts[tab] = len(rows)
			continue
		}
		n := 0
		for _, r := range rows {
			if m(r) {
				n++
			}
		}
		counts[tab] = n
	}
	return counts
}

// Sanitize resets Enum selections that no longer occur in rows.
func (s FilterSpec) Sanitize(st FilterState, rows []record.Record) FilterState {
	out := st
	for _, f := range s {
		if f.Kind != Enum {
			continue
		}
		v := st.Value(f.Name)
		if v == "" || v == f.all() {
			continue
		}
		if !slices.Contains(s.EnumOptions(rows, f.Name), v) {
			out = out.WithValue(f.Name, "")
		}
	}
	return out
}

// Restore decodes a persisted FilterState. Both the {values, toggles} form and
// a flat {name: value} object are accepted. Unknown names and values of the
// wrong type are dropped; malformed input yields the zero state.
func (s FilterSpec) Restore(data []byte) FilterState {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return FilterState{}
	}

	flat := raw
	if values, ok := raw["values"].(map[string]any); ok {
		flat = maps.Clone(values)
		if toggles, ok := raw["toggles"].(map[string]any); ok {
			maps.Copy(flat, toggles)
		}
	}

	var st FilterState
	for name, v := range flat {
		f, ok := s.Lookup(name)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			if f.Kind == InvalidRUT {
				st = st.WithToggle(name, t)
			}
		case string:
			if f.Kind == InvalidRUT {
				continue
			}
			if (f.Kind == Enum || f.Kind == Tab) && t == f.all() {
				continue
			}
			st = st.WithValue(name, t)
		}
	}
	return st
}
