package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNoopMiddlewareMap() *MiddlewareMap {
	return &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
}

// TestSetupEbookRoutes ensures all expected ebook endpoints are implemented.
func TestSetupEbookRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{
			"index endpoint",
			httptest.NewRequest(http.MethodGet, "/", nil),
			true,
		},
		{
			"status endpoint",
			httptest.NewRequest(http.MethodGet, "/status", nil),
			true,
		},
		{
			"create ebook endpoint",
			httptest.NewRequest(http.MethodPost, "/ebooks", nil),
			true,
		},
		{
			"fetch all ebooks endpoint",
			httptest.NewRequest(http.MethodGet, "/ebooks", nil),
			true,
		},
		{
			"fetch all ebooks endpoint with slash",
			httptest.NewRequest(http.MethodGet, "/ebooks/", nil),
			true,
		},
		{
			"fetch single ebook endpoint",
			httptest.NewRequest(http.MethodGet, "/ebooks/"+testEbookID, nil),
			true,
		},
		{
			"update ebook endpoint",
			httptest.NewRequest(http.MethodPut, "/ebooks/"+testEbookID, nil),
			true,
		},
		{
			"delete ebook endpoint",
			httptest.NewRequest(http.MethodDelete, "/ebooks/"+testEbookID, nil),
			true,
		},
		{
			"invalid versioned endpoint",
			httptest.NewRequest(http.MethodGet, "/v1/ebooks", nil),
			false,
		},
		{
			"invalid books endpoint",
			httptest.NewRequest(http.MethodGet, "/books", nil),
			false,
		},
	}

	mockStorage := &MockEbookStorage{
		GetAllFunc: func(ctx context.Context) ([]Ebook, error) {
			return []Ebook{}, nil
		},
		GetOneFunc: func(ctx context.Context, id string) (Ebook, error) {
			return Ebook{ID: id}, nil
		},
		AddFunc: func(ctx context.Context, ebook Ebook) (Ebook, error) {
			return ebook, nil
		},
		ReplaceFunc: func(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
			return ebook, nil
		},
		RemoveFunc: func(ctx context.Context, id string) (Ebook, error) {
			return Ebook{ID: id}, nil
		},
	}

	api := newTestAPIHandler(mockStorage, NewMockUIDHandler(true))
	router := httprouter.New()
	api.SetupEbookRoutes(router, newNoopMiddlewareMap())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		profiler    bool
		request     *http.Request
		implemented bool
	}{
		{"fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"fetch stats endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), true},
		{"maintenance mode endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/maintenance", nil), true},
		{"metrics endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/metrics", nil), true},
		{"expvar endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/vars", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops", nil), false},
		{"unknown ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/unknown", nil), false},
		{"disabled profiler endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"enabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), true},
		{"enabled profiler cmdline endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/cmdline", nil), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPIHandler(nil, NewMockUIDHandler(true))
			api.config.ProfilerEnable = tc.profiler
			router := httprouter.New()
			api.SetupOpsRoutes(router, newNoopMiddlewareMap())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutesRedirectTrailingSlash ensures the router redirects paths
// with a trailing slash once all routes are set.
func TestSetupRoutesRedirectTrailingSlash(t *testing.T) {
	api := newTestAPIHandler(nil, NewMockUIDHandler(true))
	router := httprouter.New()
	router.RedirectTrailingSlash = false
	router = api.SetupRoutes(router, newNoopMiddlewareMap())
	assert.True(t, router.RedirectTrailingSlash)
}

// TestSetupRoutes ensures ops endpoints are only exposed when enabled.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		opsEnable   bool
		request     *http.Request
		implemented bool
	}{
		{"ops disable:fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), false},
		{"ops enable:fetch configs endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"ops enable:disabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"ops disable:list ebooks endpoint", false, httptest.NewRequest(http.MethodGet, "/ebooks", nil), true},
		{"ops enable:list ebooks endpoint", true, httptest.NewRequest(http.MethodGet, "/ebooks", nil), true},
		{"swagger document endpoint", false, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), true},
		{"invalid ebook endpoint", false, httptest.NewRequest(http.MethodGet, "/x/ebooks/", nil), false},
		{"unsupported method", false, httptest.NewRequest(http.MethodDelete, "/ebooks", nil), true},
	}

	mockStorage := &MockEbookStorage{
		GetAllFunc: func(ctx context.Context) ([]Ebook, error) {
			return []Ebook{}, nil
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPIHandler(mockStorage, NewMockUIDHandler(true))
			api.config.Ops.Enable = tc.opsEnable
			router := api.SetupRoutes(httprouter.New(), newNoopMiddlewareMap())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

type flowClient struct {
	t      *testing.T
	router http.Handler
}

func (fc *flowClient) do(method, path, body string) (int, string) {
	fc.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	fc.router.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w.Code, w.Body.String()
}

func newFlowClient(t *testing.T) (*flowClient, *APIHandler) {
	clock := NewMockClocker()
	ids := NewIDsHandler()
	es := NewEbookService(zap.NewNop(), NewMemoryEbookStorage(zap.NewNop(), ids), nil)
	config := &Config{Ops: OpsConfig{Enable: true}, Storage: StorageConfig{Backend: MemoryBackend}}
	api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock, ids, es)
	pub, ops := api.MiddlewaresStacks()
	router := api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: pub.Chain, ops: ops.Chain})
	return &flowClient{t: t, router: router}, api
}

// TestEbooksLifecycle drives the whole ebook lifecycle through
// the router, the middlewares and the in-memory storage.
func TestEbooksLifecycle(t *testing.T) {
	fc, _ := newFlowClient(t)

	code, body := fc.do(http.MethodGet, "/ebooks", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"data":[]}`, body)

	code, body = fc.do(http.MethodPost, "/ebooks", `{"author":"A","title":"T","format":"pdf"}`)
	require.Equal(t, http.StatusCreated, code)
	var created Ebook
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	require.NotEmpty(t, created.ID)
	assert.True(t, NewIDsHandler().IsValid(created.ID, EbookIDPrefix))
	assert.Equal(t, Ebook{ID: created.ID, Author: "A", Title: "T", Format: "pdf"}, created)

	code, body = fc.do(http.MethodGet, "/ebooks/"+created.ID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"author":"A","title":"T","format":"pdf"}`, body)

	code, body = fc.do(http.MethodPut, "/ebooks/"+created.ID, `{"author":"B"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, body)

	code, body = fc.do(http.MethodPut, "/ebooks/"+created.ID, `{"author":"B","title":"U","format":"epub"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"author":"B","title":"U","format":"epub"}`, body)

	code, body = fc.do(http.MethodGet, "/ebooks", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"data":[{"id":"`+created.ID+`","author":"B","title":"U","format":"epub"}]}`, body)

	code, body = fc.do(http.MethodDelete, "/ebooks/"+created.ID, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)

	code, _ = fc.do(http.MethodGet, "/ebooks/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = fc.do(http.MethodDelete, "/ebooks/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = fc.do(http.MethodPut, "/ebooks/"+created.ID, `{"author":"B","title":"U","format":"epub"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = fc.do(http.MethodGet, "/ebooks/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, body)

	code, body = fc.do(http.MethodGet, "/ops/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `ebooks_api_ebook_operations_total{operation="create"} 1`)
	assert.Contains(t, body, `ebooks_api_ebook_operations_total{operation="delete"} 1`)
	assert.Contains(t, body, `route="/ebooks/:id"`)
}

// TestMaintenanceFlow ensures maintenance mode blocks public
// endpoints while keeping ops endpoints reachable.
func TestMaintenanceFlow(t *testing.T) {
	fc, api := newFlowClient(t)

	code, body := fc.do(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrade", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Maintenance mode enabled successfully.")
	assert.True(t, api.mode.enabled.Load())

	code, body = fc.do(http.MethodGet, "/ebooks", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "upgrade")

	code, _ = fc.do(http.MethodGet, "/ops/stats", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = fc.do(http.MethodGet, "/ops/maintenance?status=disable", "")
	require.Equal(t, http.StatusOK, code)

	code, _ = fc.do(http.MethodGet, "/ebooks", "")
	assert.Equal(t, http.StatusOK, code)

	code, body = fc.do(http.MethodGet, "/ops/stats", "")
	require.Equal(t, http.StatusOK, code)
	stats := make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, "memory", stats["storage.backend"])
	assert.Equal(t, float64(5), stats["called"])
}
