package view

import "github.com/ganot/inscritos/internal/domain/record"

// DefaultPageSize is used when a page declares none.
const DefaultPageSize = 10

// PageState is the 1-based page position and size.
type PageState struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// Page is one slice of a list.
type Page struct {
	Items      []record.Record
	Index      int
	Size       int
	TotalPages int
	Total      int
}

// TotalPages is max(1, ceil(n/size)).
func TotalPages(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Clamp bounds index to [1, TotalPages(n, size)].
func Clamp(index, n, size int) int {
	total := TotalPages(n, size)
	switch {
	case index < 1:
		return 1
	case index > total:
		return total
	default:
		return index
	}
}

// Paginate returns the items of page index, clamping out of range indexes.
func Paginate(list []record.Record, index, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	index = Clamp(index, len(list), size)
	start := (index - 1) * size
	end := min(start+size, len(list))
	items := []record.Record{}
	if start < len(list) {
		items = list[start:end]
	}
	return Page{
		Items:      items,
		Index:      index,
		Size:       size,
		TotalPages: TotalPages(len(list), size),
		Total:      len(list),
	}
}

// From and To are the 1-based bounds of the visible rows ("Mostrando X a Y de N").
// Both are zero for an empty list.
func (p Page) From() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Index-1)*p.Size + 1
}

func (p Page) To() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.From() + len(p.Items) - 1
}

// HasPrev and HasNext drive the Anterior/Siguiente controls.
func (p Page) HasPrev() bool { return p.Index > 1 }
func (p Page) HasNext() bool { return p.Index < p.TotalPages }

// PageLink is one entry of the condensed page selector.
type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// Window builds the numeric selector: the first and last pages and the pages
// adjacent to current are shown, and the positions two away from current
// collapse into an ellipsis.
func Window(current, total int) []PageLink {
	if total < 1 {
		total = 1
	}
	current = max(1, min(current, total))
	var links []PageLink
	for n := 1; n <= total; n++ {
		switch {
		case n == 1 || n == total || (n >= current-1 && n <= current+1):
			links = append(links, PageLink{Number: n, Current: n == current})
		case n == current-2 || n == current+2:
			links = append(links, PageLink{Ellipsis: true})
		}
	}
	return links
}
