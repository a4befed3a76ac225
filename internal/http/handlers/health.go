// Package handlers provides HTTP API handlers for mcsstheme.
package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *gorm.DB
	scheduler NextRunProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithDB sets the database connection for health checks.
func (h *HealthHandler) WithDB(db *gorm.DB) *HealthHandler {
	h.db = db
	return h
}

// WithScheduler sets the snapshot scheduler reported by health checks.
func (h *HealthHandler) WithScheduler(scheduler NextRunProvider) *HealthHandler {
	h.scheduler = scheduler
	return h
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	CPUInfo       CPUInfo           `json:"cpu_info"`
	Memory        MemoryInfo        `json:"memory"`
	Database      DatabaseHealth    `json:"database"`
	Checks        map[string]string `json:"checks"`
}

// CPUInfo holds CPU load information.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds system and process memory usage.
type MemoryInfo struct {
	Total          string  `json:"total,omitempty"`
	Available      string  `json:"available,omitempty"`
	UsedPercent    float64 `json:"used_percent"`
	ProcessRSS     string  `json:"process_rss,omitempty"`
	ProcessRSSByte uint64  `json:"process_rss_bytes"`
	GoHeapAlloc    string  `json:"go_heap_alloc"`
	Goroutines     int     `json:"goroutines"`
}

// DatabaseHealth holds database connectivity information.
type DatabaseHealth struct {
	Status            string  `json:"status"`
	ResponseTimeMS    float64 `json:"response_time_ms"`
	OpenConnections   int     `json:"open_connections"`
	InUseConnections  int     `json:"in_use_connections"`
	IdleConnections   int     `json:"idle_connections"`
	MaxOpenConnection int     `json:"max_open_connections"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// LivezInput is the input for the liveness probe.
type LivezInput struct{}

// LivezOutput is the output for the liveness probe.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// ReadyzInput is the input for the readiness probe.
type ReadyzInput struct{}

// ReadyzOutput is the output for the readiness probe.
type ReadyzOutput struct {
	Body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)

	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      "GET",
		Path:        "/livez",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getReadyz",
		Method:      "GET",
		Path:        "/readyz",
		Summary:     "Readiness probe",
		Description: "Reports whether the database is reachable",
		Tags:        []string{"System"},
	}, h.GetReadyz)
}

// GetLivez reports that the process is serving requests.
func (h *HealthHandler) GetLivez(ctx context.Context, input *LivezInput) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// GetReadyz reports whether dependencies are available.
func (h *HealthHandler) GetReadyz(ctx context.Context, input *ReadyzInput) (*ReadyzOutput, error) {
	db := h.getDatabaseHealth(ctx)

	out := &ReadyzOutput{}
	out.Body.Components = map[string]string{
		"database":  db.Status,
		"scheduler": h.schedulerStatus(),
	}
	out.Body.Status = "ready"
	if db.Status != "ok" {
		out.Body.Status = "not_ready"
	}
	return out, nil
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)
	dbHealth := h.getDatabaseHealth(ctx)

	status := "healthy"
	if dbHealth.Status == "error" {
		status = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPUInfo:       h.getCPUInfo(),
			Memory:        h.getMemoryInfo(ctx),
			Database:      dbHealth,
			Checks: map[string]string{
				"database":  dbHealth.Status,
				"scheduler": h.schedulerStatus(),
			},
		},
	}, nil
}

func (h *HealthHandler) schedulerStatus() string {
	if h.scheduler == nil || h.scheduler.NextRun() == nil {
		return "disabled"
	}
	return "ok"
}

// getCPUInfo returns CPU load information.
func (h *HealthHandler) getCPUInfo() CPUInfo {
	cores := runtime.NumCPU()
	info := CPUInfo{Cores: cores}

	loadAvg, err := load.Avg()
	if err == nil && loadAvg != nil {
		info.Load1Min = loadAvg.Load1
		info.Load5Min = loadAvg.Load5
		info.Load15Min = loadAvg.Load15
		if cores > 0 {
			info.LoadPercentage1Min = (loadAvg.Load1 / float64(cores)) * 100
		}
	}

	return info
}

// getMemoryInfo returns system and process memory usage.
func (h *HealthHandler) getMemoryInfo(ctx context.Context) MemoryInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	info := MemoryInfo{
		GoHeapAlloc: humanize.IBytes(ms.HeapAlloc),
		Goroutines:  runtime.NumGoroutine(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		info.Total = humanize.IBytes(vm.Total)
		info.Available = humanize.IBytes(vm.Available)
		info.UsedPercent = vm.UsedPercent
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if pm, err := proc.MemoryInfoWithContext(ctx); err == nil && pm != nil {
			info.ProcessRSS = humanize.IBytes(pm.RSS)
			info.ProcessRSSByte = pm.RSS
		}
	}

	return info
}

// getDatabaseHealth returns database health information.
func (h *HealthHandler) getDatabaseHealth(ctx context.Context) DatabaseHealth {
	health := DatabaseHealth{Status: "ok"}

	if h.db == nil {
		health.Status = "not_configured"
		return health
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		health.Status = "error"
		return health
	}

	stats := sqlDB.Stats()
	health.OpenConnections = stats.OpenConnections
	health.InUseConnections = stats.InUse
	health.IdleConnections = stats.Idle
	health.MaxOpenConnection = stats.MaxOpenConnections

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	health.ResponseTimeMS = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		health.Status = "error"
	}

	return health
}
