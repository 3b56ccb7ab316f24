package export_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ganot/inscritos/internal/api"
	"github.com/ganot/inscritos/internal/domain/record"
	"github.com/ganot/inscritos/internal/export"
	"github.com/ganot/inscritos/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2025, 3, 7, 15, 4, 0, 0, time.UTC)

func TestFilename(t *testing.T) {
	assert.Equal(t, "validados_2025-03-07.xlsx", export.Filename("validados", fixed))
}

func TestWorkbook_RoundTrip(t *testing.T) {
	rows := []record.Record{
		{"run": "12345678-5", "nombre": "Ana", "edad": float64(34)},
		{"run": "6000000-K", "nombre": nil},
	}
	data, err := export.Workbook("Validados", []string{"run", "nombre", "edad"}, rows)
	require.NoError(t, err)

	got, err := export.ReadFile(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "12345678-5", got[0].Text("run"))
	assert.Equal(t, "Ana", got[0].Text("nombre"))
	assert.Equal(t, "34", got[0].Text("edad"))
	assert.False(t, got[1].Has("nombre"))
}

func TestWorkbook_LongSheetName(t *testing.T) {
	data, err := export.Workbook("Usuarios nuevos pendientes de validar: marzo", []string{"run"}, nil)
	require.NoError(t, err)
	got, err := export.ReadFile(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadRecords_InvalidInput(t *testing.T) {
	_, err := export.ReadRecords(strings.NewReader("not a workbook"))
	require.Error(t, err)
}

func TestFileSink_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	sink := export.FileSink{Dir: dir}

	loc, err := sink.Put(context.Background(), "../escape.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.xlsx"), loc)

	b, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

type putRecorder struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func (m *putRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader("<Error><Code>AccessDenied</Code></Error>")),
			Header:     http.Header{"Content-Type": {"application/xml"}},
		}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	if dec, ok := decodeChunked(body); ok {
		body = dec
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	m.objects[key] = body
	m.types[key] = req.Header.Get("Content-Type")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {`"etag"`}}}, nil
}

// decodeChunked unwraps a single-chunk aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" && !strings.HasPrefix(parts[2], "0;") {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newS3Sink(t *testing.T, rt http.RoundTripper) *export.S3Sink {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return export.NewS3SinkFromClient(client, "reports", "/exports/")
}

func TestS3Sink_Put(t *testing.T) {
	rt := &putRecorder{objects: map[string][]byte{}, types: map[string]string{}}
	sink := newS3Sink(t, rt)

	loc, err := sink.Put(context.Background(), "validados_2025-03-07.xlsx", []byte("xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/exports/validados_2025-03-07.xlsx", loc)
	assert.Equal(t, []byte("xlsx"), rt.objects["reports/exports/validados_2025-03-07.xlsx"])
	assert.Equal(t, export.ContentType, rt.types["reports/exports/validados_2025-03-07.xlsx"])
}

func TestS3Sink_PutError(t *testing.T) {
	sink := newS3Sink(t, &putRecorder{fail: true})
	_, err := sink.Put(context.Background(), "x.xlsx", []byte("x"))
	require.Error(t, err)
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := export.NewS3Sink(context.Background(), export.S3Config{})
	require.Error(t, err)
}

type memSink struct {
	names []string
	data  [][]byte
	err   error
}

func (m *memSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.names = append(m.names, name)
	m.data = append(m.data, data)
	return "mem://" + name, nil
}

func TestExporter_ExportRows(t *testing.T) {
	sink := &memSink{}
	e := export.NewExporter(sink, nil, nil)
	e.SetClock(func() time.Time { return fixed })

	res, err := e.ExportRows(context.Background(), "nuevos-usuarios", "Nuevos", []string{"run"},
		[]record.Record{{"run": "12345678-5"}})
	require.NoError(t, err)
	assert.Equal(t, "nuevos-usuarios_2025-03-07.xlsx", res.Filename)
	assert.Equal(t, "mem://nuevos-usuarios_2025-03-07.xlsx", res.Location)
	assert.Equal(t, 1, res.Rows)

	rows, err := export.ReadFile(sink.data[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12345678-5", rows[0].Text("run"))
}

func TestExporter_SinkError(t *testing.T) {
	boom := errors.New("disk full")
	e := export.NewExporter(&memSink{err: boom}, nil, nil)
	_, err := e.ExportRows(context.Background(), "x", "", nil, nil)
	require.ErrorIs(t, err, boom)
}

func TestExporter_ExportBackend(t *testing.T) {
	ts := testserver.New(t, "secret")
	client := api.NewClient(api.Options{BaseURL: ts.URL(), Token: ts.Token})
	sink := &memSink{}
	e := export.NewExporter(sink, client, nil)
	e.SetClock(func() time.Time { return fixed })

	res, err := e.ExportBackend(context.Background(), record.CorteFonasa, nil)
	require.NoError(t, err)
	assert.Equal(t, "corte-fonasa_2025-03-07.xlsx", res.Filename)
	assert.Equal(t, "PK-fake-xlsx-corte-fonasa", string(sink.data[0]))
}

func TestExporter_ExportBackendUnconfigured(t *testing.T) {
	e := export.NewExporter(&memSink{}, nil, nil)
	_, err := e.ExportBackend(context.Background(), record.CorteFonasa, nil)
	require.Error(t, err)
}
