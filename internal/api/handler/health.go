package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/tokgrabba/internal/repository"
	"github.com/iconidentify/tokgrabba/internal/workspace"
)

var startTime = time.Now()

// TaskCounter reports supervised task counts.
type TaskCounter interface {
	Active() int
	Failed() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	runs        repository.RunRepository
	downloadDir string
	tasks       TaskCounter
	version     string
}

// NewHealthHandler creates a new health handler. tasks may be nil.
func NewHealthHandler(runs repository.RunRepository, downloadDir string, tasks TaskCounter, version string) *HealthHandler {
	return &HealthHandler{
		runs:        runs,
		downloadDir: downloadDir,
		tasks:       tasks,
		version:     version,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp string               `json:"timestamp"`
	Error     string               `json:"error,omitempty"`
	Runs      *repository.RunStats `json:"runs,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The bot is ready when the run
// registry answers and the download root is a directory.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.runs.Stats(ctx)
	if err == nil {
		err = checkDir(h.downloadDir)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Runs:      stats,
	})
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("download root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("download root %s is not a directory", path)
	}
	return nil
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Version        string               `json:"version,omitempty"`
	Uptime         int64                `json:"uptime_seconds"`
	UptimeHuman    string               `json:"uptime_human"`
	MemAllocMB     int64                `json:"mem_alloc_mb"`
	MemSysMB       int64                `json:"mem_sys_mb"`
	MemHeapMB      int64                `json:"mem_heap_mb"`
	NumGoroutines  int                  `json:"num_goroutines"`
	NumCPU         int                  `json:"num_cpu"`
	DiskUsedBytes  int64                `json:"disk_used_bytes"`
	DiskFreeBytes  int64                `json:"disk_free_bytes"`
	DiskTotalBytes int64                `json:"disk_total_bytes"`
	DiskUsedPct    float64              `json:"disk_used_pct"`
	DiskFreeHuman  string               `json:"disk_free_human"`
	DownloadDir    string               `json:"download_dir"`
	ActiveTasks    int                  `json:"active_tasks"`
	FailedTasks    int                  `json:"failed_tasks"`
	Runs           *repository.RunStats `json:"runs,omitempty"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Version:       h.version,
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		MemHeapMB:     int64(m.HeapAlloc / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		DownloadDir:   h.downloadDir,
	}

	total, free := workspace.DiskUsage(h.downloadDir)
	stats.DiskTotalBytes = total
	stats.DiskFreeBytes = free
	stats.DiskUsedBytes = total - free
	if total > 0 {
		stats.DiskUsedPct = float64(stats.DiskUsedBytes) / float64(total) * 100
	}
	stats.DiskFreeHuman = humanize.Bytes(uint64(free))

	if h.tasks != nil {
		stats.ActiveTasks = h.tasks.Active()
		stats.FailedTasks = h.tasks.Failed()
	}
	if runs, err := h.runs.Stats(r.Context()); err == nil {
		stats.Runs = runs
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
