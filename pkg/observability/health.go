package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a new health checker. Redis is optional.
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

// Readiness returns a readiness probe checking all dependencies
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

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dbStatus := h.checkDatabase(ctx)
		status.Dependencies["database"] = dbStatus
		if dbStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		redisStatus := h.checkRedis(ctx)
		status.Dependencies["redis"] = redisStatus
		// Redis only backs rate limiting; losing it degrades but does
		// not stop serving.
		if redisStatus.Status == StatusUnhealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return DependencyStatus{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			Latency:   latency / time.Millisecond,
			Timestamp: time.Now(),
		}
	}

	return DependencyStatus{
		Status:    StatusHealthy,
		Latency:   latency / time.Millisecond,
		Timestamp: time.Now(),
	}
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	latency := time.Since(start)

	if err != nil {
		return DependencyStatus{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			Latency:   latency / time.Millisecond,
			Timestamp: time.Now(),
		}
	}

	return DependencyStatus{
		Status:    StatusHealthy,
		Latency:   latency / time.Millisecond,
		Timestamp: time.Now(),
	}
}
