package admin

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// DoctorResponse represents the system health check response.
type DoctorResponse struct {
	Status    string        `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp string        `json:"timestamp"`
	Checks    []HealthCheck `json:"checks"`
	System    SystemInfo    `json:"system"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo represents system information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
	Uptime       string `json:"uptime"`
}

var startTime = time.Now()

// Doctor performs a system health check.
//
//	@Summary	System health check
//	@Tags		Admin
//	@Produce	json
//	@Success	200	{object}	DoctorResponse
//	@Security	AdminAuth
//	@Router		/admin/doctor [get]
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response := DoctorResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks: []HealthCheck{
			h.checkStorage(ctx),
			h.checkConfig(),
			h.checkMemory(),
		},
	}

	for _, check := range response.Checks {
		switch check.Status {
		case "fail":
			response.Status = "unhealthy"
		case "warn":
			if response.Status == "healthy" {
				response.Status = "degraded"
			}
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	response.System = SystemInfo{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     formatBytes(memStats.Alloc),
		Uptime:       time.Since(startTime).Round(time.Second).String(),
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

// checkStorage probes the generation store with a cheap read.
func (h *Handler) checkStorage(ctx context.Context) HealthCheck {
	check := HealthCheck{Name: "storage", Status: "pass"}

	start := time.Now()
	_, err := h.gens.Current(ctx, "doctor-probe")
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Status = "fail"
		check.Message = fmt.Sprintf("storage query failed: %v", err)
	} else {
		check.Message = "storage healthy"
	}
	return check
}

func (h *Handler) checkConfig() HealthCheck {
	check := HealthCheck{Name: "config", Status: "pass"}

	var issues []string
	if h.config.Auth.Mode == "none" {
		issues = append(issues, "auth disabled (development mode)")
	}
	if h.config.Engine.CascadeBatchSize > 10000 {
		issues = append(issues, "cascade_batch_size very large")
	}

	if len(issues) > 0 {
		check.Status = "warn"
		check.Message = fmt.Sprintf("config warnings: %v", issues)
	} else {
		check.Message = "configuration valid"
	}
	return check
}

func (h *Handler) checkMemory() HealthCheck {
	check := HealthCheck{Name: "memory", Status: "pass"}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	if memStats.Alloc > 500*1024*1024 {
		check.Status = "warn"
		check.Message = fmt.Sprintf("high memory usage: %s", formatBytes(memStats.Alloc))
	} else {
		check.Message = fmt.Sprintf("memory usage: %s", formatBytes(memStats.Alloc))
	}
	return check
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
