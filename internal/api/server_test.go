package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/cache"
	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/translator"
	"github.com/satishbabariya/celquery/internal/core/query/compiler"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/core/query/executor"
	"github.com/satishbabariya/celquery/internal/service"
	"github.com/satishbabariya/celquery/internal/testutil"
)

const blobSchema = `
model Blob {
  id   Int   @id
  data Bytes
  @@map("blob")
}
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := testutil.NewRegistry(t, testutil.ContentSchema+blobSchema)
	adapter := testutil.SQLiteContent(t)
	tel := telemetry.NewPrometheusTelemetry(nil, prometheus.NewRegistry())

	services, err := service.NewRegistry(service.Deps{
		Registry:   registry,
		Translator: translator.New(registry),
		Compiler:   compiler.NewSQLCompiler(adapter.GetDialect()),
		Executor:   executor.NewQueryExecutor(adapter, tel),
		Cache:      cache.NewLRU[*filter.Translation](16, 0),
		Telemetry:  tel,
	}, []service.EntityConfig{
		{Name: "content", Model: "Content"},
		{Name: "metadata", Model: "Metadata"},
		{Name: "blob", Model: "Blob"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(services, tel.Handler()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, target string) *http.Response {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func post(t *testing.T, target, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(target, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func ids(rows []map[string]any) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(float64)
	}
	return out
}

func TestList(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/Content?order=id:desc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, []float64{3, 2, 1}, ids(decode[[]map[string]any](t, resp)))

	resp = get(t, srv.URL+"/api/content?filter="+url.QueryEscape(`name.startsWith("Foo")`)+"&order=id&take=1&skip=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []float64{3}, ids(decode[[]map[string]any](t, resp)))
}

func TestFilter(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/content", `{"filter": "metadata.datakey == \"author\" && metadata.datavalue == \"Alice\""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []float64{1}, ids(decode[[]map[string]any](t, resp)))

	resp = post(t, srv.URL+"/api/metadata", `{"filter": "content_id == 2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []float64{4}, ids(decode[[]map[string]any](t, resp)))

	resp = post(t, srv.URL+"/api/content", `{"filter": "name.contains(\"zzz\")"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, resp))
}

func TestFilter_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		kind    string
		message string
	}{
		{name: "empty filter", path: "/api/content", body: `{"filter": "  "}`, status: http.StatusBadRequest, message: "Filter cannot be empty"},
		{name: "missing filter", path: "/api/content", body: `{}`, status: http.StatusBadRequest, message: "Filter cannot be empty"},
		{name: "bad json", path: "/api/content", body: `{`, status: http.StatusBadRequest, message: "Error processing request: invalid JSON body"},
		{name: "unknown entity", path: "/api/widgets", body: `{"filter": "id == 1"}`, status: http.StatusBadRequest, message: "Error processing request: invalid entity type: widgets"},
		{name: "type mismatch", path: "/api/content", body: `{"filter": "name == 1"}`, status: http.StatusBadRequest, kind: "TypeMismatch"},
		{name: "unknown field", path: "/api/content", body: `{"filter": "bogus == 1"}`, status: http.StatusBadRequest, kind: "InvalidFieldPath"},
		{name: "to-one relation not traversed", path: "/api/metadata", body: `{"filter": "content.name == \"Bar\""}`, status: http.StatusBadRequest, kind: "InvalidFieldPath"},
		{name: "syntax", path: "/api/content", body: `{"filter": "name =="}`, status: http.StatusBadRequest, kind: "Syntax"},
		{name: "unsupported schema", path: "/api/blob", body: `{"filter": "id == 1"}`, status: http.StatusInternalServerError, kind: "UnsupportedSchemaType"},
		{name: "bad order", path: "/api/content?order=bogus", body: `{"filter": "id == 1"}`, status: http.StatusBadRequest},
		{name: "order by relation", path: "/api/content?order=metadata", body: `{"filter": "id == 1"}`, status: http.StatusBadRequest},
		{name: "bad take", path: "/api/content?take=many", body: `{"filter": "id == 1"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)

			body := decode[ErrorResponse](t, resp)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.kind, body.Kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/content/2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	row := decode[map[string]any](t, resp)
	assert.Equal(t, "Bar", row["name"])

	resp = get(t, srv.URL+"/api/content/99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, srv.URL+"/api/content/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCount(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/content/count")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), decode[CountResponse](t, resp).Count)

	resp = get(t, srv.URL+"/api/content/count?filter="+url.QueryEscape(`status == "DRAFT"`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), decode[CountResponse](t, resp).Count)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/content/1")
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	const id = "6f1c1f9e-5d0a-4a43-9a36-8f1d3a0b2c11"
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/content/1", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)

	get(t, srv.URL+"/api/content?filter="+url.QueryEscape(`rating > 3.0`))

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `celquery_translations_total{result="ok",root="Content"} 1`)
	assert.Contains(t, buf.String(), `celquery_queries_total{model="Content",operation="FindMany",status="success"} 1`)
}

func TestServe_Shutdown(t *testing.T) {
	registry := testutil.ContentRegistry(t)
	services, err := service.NewRegistry(service.Deps{
		Registry:   registry,
		Translator: translator.New(registry),
		Compiler:   compiler.NewSQLCompiler(domain.SQLite),
		Executor:   executor.NewQueryExecutor(testutil.SQLiteContent(t), nil),
	}, []service.EntityConfig{{Name: "content", Model: "Content"}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(services, nil).Serve(ctx, ln, ServeConfig{ReadTimeout: time.Second}) }()

	resp := get(t, "http://"+ln.Addr().String()+"/api/content/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, "http://"+ln.Addr().String()+"/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
