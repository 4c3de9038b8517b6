package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthChecker probes the pipeline's backing services: the Postgres
// ingestion backend and the optional Redis session/notification store.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a new health checker. Both dependencies are
// optional; nil dependencies are skipped.
func NewHealthChecker(db *sql.DB, redis *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:    db,
		redis: redis,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe checking all dependencies. Because
// delivery is best-effort, a degraded backend still reports 200; only a
// fully unhealthy state returns 503.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check performs a health check against every configured dependency.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	unhealthy := 0
	total := 0

	if h.db != nil {
		total++
		dep := h.checkDatabase(ctx)
		status.Dependencies["database"] = dep
		if dep.Status == StatusUnhealthy {
			unhealthy++
		}
	}

	if h.redis != nil {
		total++
		dep := h.checkRedis(ctx)
		status.Dependencies["redis"] = dep
		if dep.Status == StatusUnhealthy {
			unhealthy++
		}
	}

	switch {
	case total == 0 || unhealthy == 0:
		status.Status = StatusHealthy
	case unhealthy < total:
		status.Status = StatusDegraded
	default:
		status.Status = StatusUnhealthy
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.db.PingContext(ctx)
	dep := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start) / time.Millisecond,
		Timestamp: time.Now(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	dep := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start) / time.Millisecond,
		Timestamp: time.Now(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}
