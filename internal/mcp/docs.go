package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganot/inscritos/internal/domain/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `inscritos is the operator dashboard of a primary-care enrollment registry (FONASA cortes, Trakcare records and new enrollments).

Core concepts:
- Page: one table of the dashboard (list_pages). Each page has its own filters, sort and page position, kept between runs.
- Load: load_dataset fetches rows from the backend. A failed load keeps the previous rows and reports the error.
- View: query_view filters and paginates loaded rows locally; it never calls the backend.
- Writes: update_record, ingest_records, validate_batch and delete_dataset go to the backend and reload the page once.

Rules of engagement:
1) Orient with list_pages, then load_dataset the page you need.
2) Narrow rows with query_view and set_sort before exporting or validating.
3) delete_dataset is destructive: call it without confirm to read the consequence, show it to the user, and only repeat with confirm=true and the administrator password they provide.
4) If a write returns a warning, the change was saved but the page did not refresh; call load_dataset.

Docs:
- inscritos://docs/index
- inscritos://docs/pages (filters and sortable fields per page)
- inscritos://docs/workflows/validation
- inscritos://docs/workflows/deletion
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "inscritos://docs/index",
		Name:        "docs_index",
		Title:       "inscritos docs index",
		Description: "Entry point: which tool to use for what.",
		Content: `# inscritos: Agent Docs Index

## Quick start

1. ` + "`list_pages`" + ` to see the pages and which are loaded.
2. ` + "`load_dataset`" + ` with a page id.
3. ` + "`query_view`" + ` with filters, ` + "`set_sort`" + ` to order.
4. ` + "`export_view`" + ` to write the filtered rows to xlsx.

## Docs

- ` + "`inscritos://docs/pages`" + ` - filters, tabs and sortable fields of every page.
- ` + "`inscritos://docs/workflows/validation`" + ` - validating new enrollments against the cortes.
- ` + "`inscritos://docs/workflows/deletion`" + ` - the two-step delete gate.

## Limitations

- Filtering is local to the rows already loaded. Use ` + "`load_dataset`" + ` params for server-side search.
- ` + "`page_observations`" + ` only covers the rows of the current page.
`,
	},
	{
		URI:         "inscritos://docs/pages",
		Name:        "docs_pages",
		Title:       "Pages, filters and sorts",
		Description: "Every page with its source, filters, tabs and sortable fields.",
		Content:     pagesDoc(),
	},
	{
		URI:         "inscritos://docs/workflows/validation",
		Name:        "docs_validation",
		Title:       "Validating new enrollments",
		Description: "How validate_batch classifies users and what the report means.",
		Content: `# Validating new enrollments

1. ` + "`load_dataset`" + ` page ` + "`nuevos-usuarios`" + `; optionally ` + "`query_view`" + ` with ` + "`estado=PENDIENTE`" + `.
2. ` + "`validate_batch`" + ` validates every filtered row, or only the given ` + "`ids`" + `.

The batch endpoint is tried first. If it fails, each user is looked up in the
corte individually:

- inscription period after the latest corte: PENDIENTE, without a lookup
- found with a FALLECIDO motivo: FALLECIDO
- found but RECHAZADO, TRASLADO NEGATIVO or RECHAZADO PREVISIONAL: NO_VALIDADO
- found otherwise: VALIDADO
- not found: NO_VALIDADO when the latest corte already covers the inscription, else PENDIENTE

The report counts checked users, users whose estado changed, and failures.
One user failing does not stop the others. The page reloads once at the end.
`,
	},
	{
		URI:         "inscritos://docs/workflows/deletion",
		Name:        "docs_deletion",
		Title:       "Deleting data",
		Description: "The two-step confirmation required by delete_dataset.",
		Content: `# Deleting data

` + "`delete_dataset`" + ` removes a corte month (` + "`month`" + `), one record (` + "`id`" + `) or, with
neither, the whole base of the page.

1. Call without ` + "`confirm`" + `. Nothing is sent; the response carries the consequence text.
2. Show the consequence to the user verbatim and ask for the administrator password.
3. Call again with ` + "`confirm=true`" + ` and ` + "`admin_password`" + `.

A missing password is treated as a cancellation and nothing is sent. A wrong
password is rejected by the backend.
`,
	},
}

var filterKindNames = map[view.FilterKind]string{
	view.Text:       "text (accent-insensitive substring, applied after typing pauses)",
	view.Identifier: "RUN (punctuation-insensitive substring, applied after typing pauses)",
	view.Enum:       "select (exact; \"all\" clears)",
	view.Tab:        "tab",
	view.InvalidRUT: "toggle (\"true\" keeps rows whose RUN check digit is wrong)",
}

func pagesDoc() string {
	var b strings.Builder
	b.WriteString("# Pages\n")
	for _, id := range view.LayoutIDs() {
		l, err := view.LookupLayout(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\nSource: `%s`. Page size %d.\n", l.Title, l.ID, l.Source.Name, l.PageSize)
		if len(l.Filters) > 0 {
			b.WriteString("\nFilters:\n")
			for _, f := range l.Filters {
				fmt.Fprintf(&b, "- `%s`: %s\n", f.Name, filterKindNames[f.Kind])
			}
		}
		if len(l.Tabs) > 0 {
			fmt.Fprintf(&b, "\nTabs on `%s`: %s\n", l.TabFilter, strings.Join(l.Tabs, ", "))
		}
		if len(l.Sort.Fields) > 0 {
			names := make([]string, len(l.Sort.Fields))
			for i, f := range l.Sort.Fields {
				names[i] = "`" + f.Name + "`"
			}
			fmt.Fprintf(&b, "\nSortable: %s. Default: %s %s.\n", strings.Join(names, ", "), l.Sort.Default.Field, l.Sort.Default.Direction)
		}
	}
	return b.String()
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
