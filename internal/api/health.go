package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp string       `json:"timestamp"`
	VersionInfo
	ProtocolVersion string                 `json:"protocol_version"`
	Uptime          string                 `json:"uptime"`
	Checks          map[string]HealthCheck `json:"checks"`
	System          SystemInfo             `json:"system"`
	RequestID       string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// handleHealthCheck reports the pot source and session store.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"pot":      s.checkPotHealth(r),
		"sessions": s.checkSessionsHealth(),
	}
	overall := HealthStatusHealthy
	for _, c := range checks {
		if c.Status == HealthStatusUnhealthy {
			overall = HealthStatusUnhealthy
			break
		}
		if c.Status == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}

	statusCode := http.StatusOK
	if overall == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	s.writeJSON(w, statusCode, HealthCheckResponse{
		Status:          overall,
		Timestamp:       s.clock.Now().UTC().Format(time.RFC3339),
		VersionInfo:     GetVersionInfo(),
		ProtocolVersion: s.dealer.Spec().Version,
		Uptime:          s.clock.Since(s.startTime).String(),
		Checks:          checks,
		System:          systemInfo(),
		RequestID:       middleware.GetReqID(r.Context()),
	})
}

// handleLiveness provides liveness probe endpoint
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alive":          true,
		"timestamp":      s.clock.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"uptime":         s.clock.Since(s.startTime).String(),
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

func (s *Server) checkPotHealth(r *http.Request) HealthCheck {
	start := s.clock.Now()
	check := HealthCheck{Status: HealthStatusHealthy}
	pot, err := s.pots.Pot(r.Context())
	switch {
	case err != nil:
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("pot unavailable: %v", err)
	case !pot.IsPositive():
		check.Status = HealthStatusDegraded
		check.Message = "pot is empty, no bet can be accepted"
	default:
		check.Message = fmt.Sprintf("pot %s", pot)
	}
	check.LastChecked = s.clock.Now().UTC().Format(time.RFC3339)
	check.Duration = s.clock.Since(start).String()
	return check
}

func (s *Server) checkSessionsHealth() HealthCheck {
	return HealthCheck{
		Status:      HealthStatusHealthy,
		Message:     fmt.Sprintf("%d sessions held", s.sessions.Len()),
		LastChecked: s.clock.Now().UTC().Format(time.RFC3339),
	}
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		GCCycles:      m.NumGC,
	}
}
