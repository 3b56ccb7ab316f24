package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes one MCP tool and its JSON input schema.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func pageProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Page id: cortes, corte-fonasa, validados, nuevos-usuarios, hp-trakcare or historial-cargas",
	}
}

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Orientation
		{
			Name:        "list_pages",
			Description: "List the dashboard pages, their data source and whether they are loaded",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        "load_dataset",
			Description: "Fetch the rows of a page from the backend. Previous rows are kept if the load fails",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"params": map[string]any{
					"type":        "object",
					"description": "Extra server-side query parameters, e.g. {\"search\": \"12345678-5\"}",
				},
			}, "page"),
		},
		{
			Name:        "query_view",
			Description: "Filter and paginate a loaded page. Filters apply immediately; any filter change returns to page 1",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"filters": map[string]any{
					"type":                 "object",
					"description":          "Filter name to value. Use \"all\" to clear a select filter and \"true\"/\"false\" for toggles",
					"additionalProperties": map[string]any{"type": "string"},
				},
				"clear_filters": map[string]any{
					"type":        "boolean",
					"description": "Reset every filter before applying the given ones",
				},
				"page_index": map[string]any{
					"type":        "integer",
					"description": "1-based page number; out-of-range values are clamped",
				},
				"page_size": map[string]any{
					"type":        "integer",
					"description": "Rows per page",
				},
			}, "page"),
		},
		{
			Name:        "set_sort",
			Description: "Sort a page by one of its sortable fields. Without direction the same field toggles asc/desc",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"field": map[string]any{
					"type":        "string",
					"description": "Sortable field name",
				},
				"direction": map[string]any{
					"type": "string",
					"enum": []string{"asc", "desc"},
				},
			}, "page", "field"),
		},
		{
			Name:        "lookup_run",
			Description: "Find a person by RUN across the corte, Trakcare and new-enrollment sources",
			InputSchema: object(map[string]any{
				"run": map[string]any{
					"type":        "string",
					"description": "RUN with verification digit, formatted or not",
				},
			}, "run"),
		},

		// Mutations
		{
			Name:        "update_record",
			Description: "Edit fields of one record. Empty strings are stored as null. The page is reloaded afterwards",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"id": map[string]any{
					"type":        "string",
					"description": "Record id",
				},
				"fields": map[string]any{
					"type":        "object",
					"description": "Field name to new value",
				},
			}, "page", "id", "fields"),
		},
		{
			Name:        "ingest_records",
			Description: "Upload records to a page's resource, from rows, a base64 .xlsx workbook, or an .xlsx file in the server's import directory",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"rows": map[string]any{
					"type":        "array",
					"description": "Records to upload",
					"items":       map[string]any{"type": "object"},
				},
				"file": map[string]any{
					"type":        "string",
					"description": "Path, relative to the import directory, of an .xlsx file whose first sheet has a header row",
				},
				"workbook": map[string]any{
					"type":        "string",
					"description": "Base64-encoded .xlsx workbook whose first sheet has a header row",
				},
			}, "page"),
		},
		{
			Name:        "validate_batch",
			Description: "Validate new enrollments against the FONASA cortes and update their estado",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"ids": map[string]any{
					"type":        "array",
					"description": "Restrict to these record ids; defaults to every loaded row",
					"items":       map[string]any{"type": "string"},
				},
			}),
		},
		{
			Name:        "delete_dataset",
			Description: "Permanently delete a corte month, one record or a whole base. Call once to read the consequence, then again with confirm=true and admin_password",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"month": map[string]any{
					"type":        "string",
					"description": "Corte period as YYYY-MM",
				},
				"id": map[string]any{
					"type":        "string",
					"description": "Single record id",
				},
				"confirm": map[string]any{
					"type":        "boolean",
					"description": "Set after the user accepted the consequence",
				},
				"admin_password": map[string]any{
					"type":        "string",
					"description": "Administrator password",
				},
			}, "page"),
		},

		// Reporting
		{
			Name:        "export_view",
			Description: "Write the filtered rows of a page to <page>_<date>.xlsx, or store the backend's own export",
			InputSchema: object(map[string]any{
				"page": pageProperty(),
				"backend": map[string]any{
					"type":        "boolean",
					"description": "Use the backend export endpoint instead of the local rows",
				},
			}, "page"),
		},
		{
			Name:        "list_uploads",
			Description: "List the upload history with optional type, state and date filters",
			InputSchema: object(map[string]any{
				"tipo":        map[string]any{"type": "string", "enum": []string{"usuarios", "cortes"}},
				"estado":      map[string]any{"type": "string", "enum": []string{"completado", "procesando", "error"}},
				"fecha_desde": map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				"fecha_hasta": map[string]any{"type": "string", "description": "YYYY-MM-DD"},
				"page_index":  map[string]any{"type": "integer"},
				"page_size":   map[string]any{"type": "integer"},
			}),
		},
		{
			Name:        "recent_activity",
			Description: "List recent writes made from this dashboard and how they ended",
			InputSchema: object(map[string]any{
				"source": map[string]any{"type": "string", "description": "Source name"},
				"type": map[string]any{
					"type": "string",
					"enum": []string{"record_updated", "records_ingested", "dataset_deleted", "bulk_validated"},
				},
				"outcome": map[string]any{
					"type": "string",
					"enum": []string{"succeeded", "failed", "cancelled", "rejected"},
				},
				"limit": map[string]any{"type": "integer"},
			}),
		},
		{
			Name:        "page_observations",
			Description: "Fetch the review notes of every user on the current page of a loaded view",
			InputSchema: object(map[string]any{"page": pageProperty()}, "page"),
		},
	}
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			out, err := h.Handle(ctx, name, args)
			if err != nil {
				return toolError(err), nil
			}
			data, err := json.Marshal(out)
			if err != nil {
				return nil, fmt.Errorf("encode %s result: %w", name, err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			}, nil
		})
	}
}

func toolError(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	if apiErr == nil {
		apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
