package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/pkg/cache"
	"costlens/pkg/config"
	"costlens/pkg/middleware"
	"costlens/pkg/scheduler"
	"costlens/pkg/service"
	"costlens/pkg/storage"
)

const awsCSV = `Start,Service,Amount
2024-01-05,EC2,100
2024-02-05,EC2,100
2024-03-05,EC2,300
2024-03-05,S3,50
`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
}

type testAPI struct {
	router *gin.Engine
	h      *HandlerService
	svc    *service.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.Open(&config.StorageConfig{
		Driver:      storage.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "costlens.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	svc := service.New(service.Options{
		Store: store,
		Cache: cache.New(&config.CacheConfig{Enabled: true, TTL: 60, MaxEntries: 100}),
	})
	h := NewHandlerService(cfg, svc)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery())
	r.GET("/health", h.HealthCheck)
	h.RegisterRoutes(r.Group("/api/v1"))
	return &testAPI{router: r, h: h, svc: svc}
}

func (a *testAPI) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func uploadRequest(t *testing.T, name, content, provider string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if provider != "" {
		require.NoError(t, mw.WriteField("provider", provider))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (a *testAPI) upload(t *testing.T) uint {
	t.Helper()
	w, env := a.do(t, uploadRequest(t, "aws.csv", awsCSV, "AWS"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res service.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Import.ID
}

func TestImportLifecycle(t *testing.T) {
	api := newTestAPI(t)
	id := api.upload(t)
	assert.NotZero(t, id)

	w, env := api.do(t, uploadRequest(t, "again.csv", awsCSV, ""))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, env.Error)

	w, env = api.get(t, "/api/v1/imports")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	w, _ = api.get(t, "/api/v1/imports/1")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/imports/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.get(t, "/api/v1/imports/1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader("")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, uploadRequest(t, "empty.csv", "", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDatasetEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t)

	w, env := api.get(t, "/api/v1/datasets/1/summary")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary struct {
		TotalCost float64 `json:"total_cost"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.InDelta(t, 550, summary.TotalCost, 0.001)

	w, env = api.get(t, "/api/v1/datasets/1/rankings?top=1")
	require.Equal(t, http.StatusOK, w.Code)
	var rankings []struct {
		Service string `json:"service"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rankings))
	require.Len(t, rankings, 1)
	assert.Equal(t, "EC2", rankings[0].Service)

	w, env = api.get(t, "/api/v1/datasets/1?services=S3")
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Services []string `json:"services"`
		Provider string   `json:"provider"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, []string{"S3"}, view.Services)
	assert.Equal(t, "AWS", view.Provider)

	for _, path := range []string{"percentages", "monthly", "statistics", "forecast", "anomalies", "recommendations", "insights"} {
		w, _ = api.get(t, "/api/v1/datasets/1/"+path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestDatasetParameterErrors(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t)

	cases := map[string]int{
		"/api/v1/datasets/abc/summary":                http.StatusBadRequest,
		"/api/v1/datasets/1/summary?start=not-a-date": http.StatusBadRequest,
		"/api/v1/datasets/1/rankings?top=-2":          http.StatusBadRequest,
		"/api/v1/datasets/1/anomalies?explain=maybe":  http.StatusBadRequest,
		"/api/v1/datasets/99/summary":                 http.StatusNotFound,
	}
	for path, want := range cases {
		w, _ := api.get(t, path)
		assert.Equal(t, want, w.Code, path)
	}
}

func TestChat(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/1/chat", strings.NewReader(`{"question":"What was the total cost?"}`))
	req.Header.Set("Content-Type", "application/json")
	w, env := api.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answer struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Contains(t, answer.Answer, "550")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets/1/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = api.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMultiCloudEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.get(t, "/api/v1/multicloud/kpis")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := api.get(t, "/api/v1/multicloud/insights")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, *env.Count)

	api.upload(t)
	w, env = api.get(t, "/api/v1/multicloud/kpis?period=6m")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var kpis struct {
		KPIs struct {
			TotalCost float64 `json:"total_cost"`
			MaxMonth  string  `json:"max_month"`
		} `json:"kpis"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &kpis))
	assert.InDelta(t, 550, kpis.KPIs.TotalCost, 0.001)
	assert.Equal(t, "2024-03", kpis.KPIs.MaxMonth)

	w, _ = api.get(t, "/api/v1/multicloud/kpis?period=fortnight")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.get(t, "/api/v1/multicloud/kpis?ids=1,x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, path := range []string{"trend", "share", "anomalies", "treemap?top_k=5", "matrix", "stacked?by=category"} {
		w, _ = api.get(t, "/api/v1/multicloud/"+path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestDisabledComponentsReturnUnavailable(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.get(t, "/api/v1/multicloud/warehouse")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/objectstore/import", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = api.get(t, "/api/v1/scheduler/jobs")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts, err := scheduler.NewTaskScheduler(ctx, scheduler.Options{
		Config: &config.SchedulerConfig{Enabled: true},
		Runner: api.svc,
		Runs:   api.svc.Store(),
	})
	require.NoError(t, err)
	api.h.SetScheduler(ts)

	w, env := api.get(t, "/api/v1/scheduler/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, *env.Count)

	var jobs []scheduler.ScheduledJob
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	var evictID string
	for _, j := range jobs {
		if j.Kind == config.JobKindCacheEvict {
			evictID = j.ID
		}
	}
	require.NotEmpty(t, evictID)

	w, _ = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/"+evictID+"/trigger", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.get(t, "/api/v1/scheduler/runs?job=hourly_cache_evict")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *env.Count)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs", strings.NewReader(`{"name":"x","kind":"sync","cron":"0 1 * * *"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = api.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/scheduler/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndStatus(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w, env := api.get(t, "/api/v1/system/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Imports int `json:"imports"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 1, status.Imports)
}

func TestCacheEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t)
	api.get(t, "/api/v1/datasets/1/summary")

	w, env := api.get(t, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Positive(t, stats.CacheSize)

	w, _ = api.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, api.svc.CacheStats().CacheSize)
}
