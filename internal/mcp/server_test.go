package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/session"
	"github.com/ganot/inscritos/internal/mcp"
	"github.com/ganot/inscritos/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, logger *slog.Logger) (*sdkmcp.ClientSession, *testserver.TestServer) {
	t.Helper()
	ts := testserver.New(t, "")
	client := api.NewClient(api.Options{BaseURL: ts.URL()})

	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Sessions: session.NewService(client, nil),
			Lookup:   client,
		},
		Logger: logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	cs, err := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil).
		Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs, ts
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) (*sdkmcp.CallToolResult, string) {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func TestServer_ListTools(t *testing.T) {
	cs, _ := connect(t, nil)

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
		require.NotEmpty(t, tool.Description, tool.Name)
	}
	for _, want := range []string{
		"list_pages", "load_dataset", "query_view", "set_sort", "lookup_run", "update_record",
		"ingest_records", "validate_batch", "delete_dataset", "export_view", "list_uploads",
		"recent_activity", "page_observations",
	} {
		require.True(t, names[want], "missing tool %s", want)
	}
}

func TestServer_LoadDatasetRoundTrip(t *testing.T) {
	cs, ts := connect(t, nil)
	ts.Seed("nuevos-usuarios", testserver.Users(15)...)

	result, text := callTool(t, cs, "load_dataset", map[string]any{"page": "nuevos-usuarios"})
	require.False(t, result.IsError, text)

	var v struct {
		Loaded     bool `json:"loaded"`
		TotalPages int  `json:"total_pages"`
		Filtered   int  `json:"filtered"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &v))
	require.True(t, v.Loaded)
	require.Equal(t, 15, v.Filtered)
	require.Equal(t, 2, v.TotalPages)
}

func TestServer_ToolErrorCarriesCode(t *testing.T) {
	cs, _ := connect(t, nil)

	result, text := callTool(t, cs, "load_dataset", map[string]any{"page": "inexistente"})
	require.True(t, result.IsError)

	var apiErr mcp.APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	require.Equal(t, "UNKNOWN_PAGE", apiErr.Code)
	require.NotEmpty(t, apiErr.RecoveryHint)
}

func TestServer_DocumentationResources(t *testing.T) {
	cs, _ := connect(t, nil)
	ctx := context.Background()

	resources, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	uris := map[string]*sdkmcp.Resource{}
	for _, r := range resources.Resources {
		uris[r.URI] = r
	}
	for _, uri := range []string{
		"inscritos://docs/index",
		"inscritos://docs/pages",
		"inscritos://docs/workflows/validation",
		"inscritos://docs/workflows/deletion",
	} {
		r, ok := uris[uri]
		require.True(t, ok, "missing doc resource %s", uri)
		require.Equal(t, "text/markdown", r.MIMEType)
		require.Greater(t, r.Size, int64(0))
	}

	read, err := cs.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "inscritos://docs/pages"})
	require.NoError(t, err)
	require.Contains(t, read.Contents[0].Text, "`nuevos-usuarios`")
	require.Contains(t, read.Contents[0].Text, "`rutInvalido`")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_TrafficLogging(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cs, _ := connect(t, logger)

	callTool(t, cs, "list_pages", nil)

	require.Eventually(t, func() bool {
		out := buf.String()
		return strings.Contains(out, `msg="mcp traffic"`) &&
			strings.Contains(out, "stage=request") &&
			strings.Contains(out, "stage=response")
	}, 2*time.Second, 20*time.Millisecond)
}
