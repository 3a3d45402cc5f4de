package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything whose liveness can be checked, such as the database pool
// or the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RequestMetrics struct {
	RequestCount   int64            `json:"request_count"`
	AvgDurationMs  float64          `json:"avg_request_duration_ms"`
	ActiveRequests int64            `json:"active_requests"`
	ErrorCount     int64            `json:"error_count"`
	StatusCodes    map[int]int64    `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoint_calls"`
	LastRequest    time.Time        `json:"last_request"`
}

// SweepReport is the outcome of one expiration sweep.
type SweepReport struct {
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
	ProjectsPurged int       `json:"projects_purged"`
	TasksPurged    int       `json:"tasks_purged"`
	FilesRemoved   int       `json:"files_removed"`
	Skipped        bool      `json:"skipped"`
	Error          string    `json:"error,omitempty"`
	TotalSweeps    int64     `json:"total_sweeps"`
	FailedSweeps   int64     `json:"failed_sweeps"`
	LifetimePurged int64     `json:"lifetime_purged"`
}

type HealthCheck struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	LastRun   time.Time `json:"last_run"`
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// Registry collects request metrics, dependency checks and sweep results.
type Registry struct {
	mu            sync.RWMutex
	startTime     time.Time
	requests      RequestMetrics
	totalDuration time.Duration
	checks        map[string]Pinger
	sweep         *SweepReport
	extra         map[string]func() interface{}
	checkTimeout  time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		startTime: time.Now(),
		requests: RequestMetrics{
			StatusCodes: make(map[int]int64),
			Endpoints:   make(map[string]int64),
		},
		checks:       make(map[string]Pinger),
		extra:        make(map[string]func() interface{}),
		checkTimeout: 3 * time.Second,
	}
}

func (r *Registry) RegisterHealthCheck(name string, p Pinger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = p
}

// RegisterStats adds a named section to the /metrics payload.
func (r *Registry) RegisterStats(name string, fn func() interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extra[name] = fn
}

// RecordSweep stores the latest sweep and updates the running totals.
func (r *Registry) RecordSweep(report SweepReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sweep != nil {
		report.TotalSweeps = r.sweep.TotalSweeps
		report.FailedSweeps = r.sweep.FailedSweeps
		report.LifetimePurged = r.sweep.LifetimePurged
	}
	report.TotalSweeps++
	if report.Error != "" {
		report.FailedSweeps++
	}
	report.LifetimePurged += int64(report.ProjectsPurged + report.TasksPurged)
	r.sweep = &report
}

func (r *Registry) LastSweep() (SweepReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sweep == nil {
		return SweepReport{}, false
	}
	return *r.sweep, true
}

func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		r.mu.Lock()
		r.requests.ActiveRequests++
		r.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		r.mu.Lock()
		r.requests.ActiveRequests--
		r.requests.RequestCount++
		r.totalDuration += duration
		r.requests.AvgDurationMs = float64(r.totalDuration.Milliseconds()) / float64(r.requests.RequestCount)
		r.requests.LastRequest = time.Now()
		if status >= 400 {
			r.requests.ErrorCount++
		}
		r.requests.StatusCodes[status]++
		r.requests.Endpoints[endpoint]++
		r.mu.Unlock()
	}
}

func (r *Registry) Requests() RequestMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.requests
	out.StatusCodes = make(map[int]int64, len(r.requests.StatusCodes))
	for k, v := range r.requests.StatusCodes {
		out.StatusCodes[k] = v
	}
	out.Endpoints = make(map[string]int64, len(r.requests.Endpoints))
	for k, v := range r.requests.Endpoints {
		out.Endpoints[k] = v
	}
	return out
}

// RunHealthChecks pings every registered dependency concurrently.
func (r *Registry) RunHealthChecks(ctx context.Context) []HealthCheck {
	r.mu.RLock()
	names := make([]string, 0, len(r.checks))
	pingers := make([]Pinger, 0, len(r.checks))
	for name, p := range r.checks {
		names = append(names, name)
		pingers = append(pingers, p)
	}
	timeout := r.checkTimeout
	r.mu.RUnlock()

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := pingers[i].Ping(checkCtx)
			check := HealthCheck{
				Name:      names[i],
				Status:    statusHealthy,
				LatencyMs: time.Since(start).Milliseconds(),
				LastRun:   time.Now(),
			}
			if err != nil {
				check.Status = statusUnhealthy
				check.Message = err.Error()
			}
			results[i] = check
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return results
}

func allHealthy(checks []HealthCheck) bool {
	for _, check := range checks {
		if check.Status != statusHealthy {
			return false
		}
	}
	return true
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

func (r *Registry) SystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: time.Since(r.startTime).Round(time.Second).String(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(m.Alloc),
			TotalAlloc: bToMb(m.TotalAlloc),
			Sys:        bToMb(m.Sys),
			NumGC:      m.NumGC,
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func (r *Registry) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": r.Requests(),
			"system":      r.SystemMetrics(),
			"timestamp":   time.Now().UTC(),
		}
		if sweep, ok := r.LastSweep(); ok {
			response["sweeper"] = sweep
		}

		r.mu.RLock()
		for name, fn := range r.extra {
			response[name] = fn()
		}
		r.mu.RUnlock()

		c.JSON(http.StatusOK, response)
	}
}

func (r *Registry) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := r.RunHealthChecks(c.Request.Context())

		overall := statusHealthy
		status := http.StatusOK
		if !allHealthy(checks) {
			overall = statusUnhealthy
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC(),
			"checks":    checks,
			"uptime":    time.Since(r.startTime).Round(time.Second).String(),
		})
	}
}

func (r *Registry) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if allHealthy(r.RunHealthChecks(c.Request.Context())) {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now().UTC()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "timestamp": time.Now().UTC()})
	}
}

func (r *Registry) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(r.startTime).Round(time.Second).String(),
		})
	}
}
