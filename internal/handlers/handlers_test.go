package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseloft/store-service/internal/scheduler"
)

// fakeRecordStore is an in-memory ScheduleRecordStore.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]scheduler.Record
	nextID  int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]scheduler.Record)}
}

func (f *fakeRecordStore) List(ctx context.Context) ([]scheduler.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scheduler.Record
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRecordStore) GetByID(ctx context.Context, id string) (*scheduler.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeRecordStore) Create(ctx context.Context, rec *scheduler.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == "" {
		f.nextID++
		rec.ID = fmt.Sprintf("rec_%d", f.nextID)
	}
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeRecordStore) Update(ctx context.Context, rec *scheduler.Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rec.ID]; !ok {
		return false, nil
	}
	f.records[rec.ID] = *rec
	return true, nil
}

func (f *fakeRecordStore) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeRecordStore) SetRunningByJobID(ctx context.Context, jobID string, running bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rec := range f.records {
		if rec.JobID == jobID {
			rec.Running = running
			f.records[id] = rec
		}
	}
	return nil
}

func (f *fakeRecordStore) DeleteByJobID(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rec := range f.records {
		if rec.JobID == jobID {
			delete(f.records, id)
		}
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *scheduler.Registry) {
	t.Helper()
	return newTestRouterWithRecords(t, nil)
}

func newTestRouterWithRecords(t *testing.T, records ScheduleRecordStore) (*gin.Engine, *scheduler.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := scheduler.NewRegistry(zerolog.Nop())
	registry.RegisterKind("discountSync", func(ctx context.Context) {})
	t.Cleanup(registry.Shutdown)

	productHandler := NewProductHandler(nil, zerolog.Nop())
	orderHandler := NewOrderHandler(nil, zerolog.Nop())
	scheduleHandler := NewScheduleHandler(registry, records, zerolog.Nop())

	router := gin.New()
	router.GET("/health", HealthCheck)
	router.GET("/api/products", productHandler.List)
	router.POST("/api/orders", orderHandler.Create)

	schedules := router.Group("/admin/schedules")
	{
		schedules.GET("/records", scheduleHandler.ListRecords)
		schedules.POST("/records", scheduleHandler.CreateRecord)
		schedules.GET("/records/:recordId", scheduleHandler.GetRecord)
		schedules.PUT("/records/:recordId", scheduleHandler.UpdateRecord)
		schedules.DELETE("/records/:recordId", scheduleHandler.DeleteRecord)

		schedules.POST("", scheduleHandler.RegisterJob)
		schedules.GET("", scheduleHandler.ListJobs)
		schedules.POST("/:jobId/start", scheduleHandler.StartJob)
		schedules.POST("/:jobId/stop", scheduleHandler.StopJob)
		schedules.DELETE("/:jobId", scheduleHandler.CancelJob)
	}
	return router, registry
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthWithoutDatabase(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "not configured", resp.Database)
}

func TestStorageEndpointsDegradeWithoutDatabase(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(router, http.MethodPost, "/api/orders", `{"productId":"prd_x","quantity":1,"userId":"u"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(router, http.MethodGet, "/admin/schedules/records", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRegisterJobLifecycle(t *testing.T) {
	router, registry := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/admin/schedules", `{"cronExpr":"*/5 * * * *"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		JobID    string `json:"jobId"`
		CronExpr string `json:"cronExpr"`
		Kind     string `json:"kind"`
		Running  bool   `json:"running"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.JobID, "job_"))
	assert.Equal(t, "discountSync", created.Kind, "kind defaults to the discount sweep")
	assert.True(t, created.Running)

	w = doRequest(router, http.MethodGet, "/admin/schedules", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.JobID)

	w = doRequest(router, http.MethodPost, "/admin/schedules/"+created.JobID+"/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, registry.List()[0].Running)

	w = doRequest(router, http.MethodPost, "/admin/schedules/"+created.JobID+"/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, registry.List()[0].Running)

	w = doRequest(router, http.MethodDelete, "/admin/schedules/"+created.JobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, registry.List())
}

func TestRegisterJobValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing cron", `{}`},
		{"invalid cron", `{"cronExpr":"every five minutes"}`},
		{"unknown kind", `{"cronExpr":"*/5 * * * *","kind":"reindexEverything"}`},
		{"malformed json", `{"cronExpr":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/admin/schedules", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateRecordUnknownIDLeavesJobsUntouched(t *testing.T) {
	records := newFakeRecordStore()
	router, registry := newTestRouterWithRecords(t, records)

	w := doRequest(router, http.MethodPost, "/admin/schedules", `{"cronExpr":"*/5 * * * *"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	jobID := registry.List()[0].ID

	// A PUT to a nonexistent record naming a live job must be a pure 404:
	// the job keeps its schedule and running state.
	body := fmt.Sprintf(`{"name":"n","cronExpr":"*/1 * * * *","jobId":%q,"jobKind":"discountSync","running":false}`, jobID)
	w = doRequest(router, http.MethodPut, "/admin/schedules/records/rec_missing", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	jobs := registry.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "*/5 * * * *", jobs[0].CronExpr)
	assert.True(t, jobs[0].Running)
}

func TestUpdateRecordReschedulesLiveJob(t *testing.T) {
	records := newFakeRecordStore()
	router, registry := newTestRouterWithRecords(t, records)

	w := doRequest(router, http.MethodPost, "/admin/schedules", `{"cronExpr":"*/5 * * * *","name":"sweep"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	jobID := registry.List()[0].ID

	all, err := records.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "registration mirrors one record")
	recID := all[0].ID

	body := fmt.Sprintf(`{"name":"sweep","cronExpr":"*/1 * * * *","jobId":%q,"jobKind":"discountSync","running":true}`, jobID)
	w = doRequest(router, http.MethodPut, "/admin/schedules/records/"+recID, body)
	require.Equal(t, http.StatusOK, w.Code)

	jobs := registry.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "*/1 * * * *", jobs[0].CronExpr)

	rec, err := records.GetByID(context.Background(), recID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "*/1 * * * *", rec.CronExpr)
}

func TestJobEndpointsUnknownID(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/admin/schedules/job_missing/start", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/admin/schedules/job_missing/stop", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodDelete, "/admin/schedules/job_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
