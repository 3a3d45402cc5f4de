package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newRouter(r *Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(r.Middleware())
	router.GET("/health", r.HealthHandler())
	router.GET("/health/ready", r.ReadinessHandler())
	router.GET("/health/live", r.LivenessHandler())
	router.GET("/metrics", r.MetricsHandler())
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth_AllHealthy(t *testing.T) {
	r := NewRegistry()
	r.RegisterHealthCheck("database", pingFunc(func(context.Context) error { return nil }))
	router := newRouter(r)

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	assert.Equal(t, http.StatusOK, get(router, "/health/ready").Code)
}

func TestHealth_FailingDependency(t *testing.T) {
	r := NewRegistry()
	r.RegisterHealthCheck("database", pingFunc(func(context.Context) error { return nil }))
	r.RegisterHealthCheck("redis", pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	router := newRouter(r)

	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Checks []HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "database", body.Checks[0].Name)
	assert.Equal(t, "redis", body.Checks[1].Name)
	assert.Equal(t, "connection refused", body.Checks[1].Message)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)
}

func TestMiddleware_CountsRequests(t *testing.T) {
	r := NewRegistry()
	router := newRouter(r)

	get(router, "/health/live")
	get(router, "/boom")

	m := r.Requests()
	assert.Equal(t, int64(2), m.RequestCount)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.Equal(t, int64(1), m.StatusCodes[http.StatusNotFound])
	assert.Equal(t, int64(1), m.Endpoints["GET /boom"])
	assert.Zero(t, m.ActiveRequests)
}

func TestRecordSweep_KeepsTotals(t *testing.T) {
	r := NewRegistry()
	_, ok := r.LastSweep()
	assert.False(t, ok)

	r.RecordSweep(SweepReport{StartedAt: time.Now(), ProjectsPurged: 2, TasksPurged: 3})
	r.RecordSweep(SweepReport{StartedAt: time.Now(), Error: "db down"})

	last, ok := r.LastSweep()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.TotalSweeps)
	assert.Equal(t, int64(1), last.FailedSweeps)
	assert.Equal(t, int64(5), last.LifetimePurged)
	assert.Equal(t, "db down", last.Error)
}

func TestMetricsHandler_IncludesSweepAndExtras(t *testing.T) {
	r := NewRegistry()
	r.RecordSweep(SweepReport{TasksPurged: 1})
	r.RegisterStats("cache", func() interface{} { return map[string]int{"l1_entries": 4} })

	w := get(newRouter(r), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "sweeper")
	assert.Contains(t, body, "application")
	assert.JSONEq(t, `{"l1_entries":4}`, string(body["cache"]))
}
