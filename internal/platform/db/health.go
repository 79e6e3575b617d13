package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the JSON view of the pgx pool counters.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Pinger is anything that can report its own reachability: the pgx pool,
// the prescription store, the revocation store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// DependencyStatus is the health of one backing store.
type DependencyStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// CheckDependencies pings every dependency with a shared timeout and reports
// whether all of them answered.
func CheckDependencies(ctx context.Context, deps map[string]Pinger, timeout time.Duration) (map[string]DependencyStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := make(map[string]DependencyStatus, len(deps))
	healthy := true
	for name, p := range deps {
		if err := p.Ping(ctx); err != nil {
			out[name] = DependencyStatus{Error: err.Error()}
			healthy = false
			continue
		}
		out[name] = DependencyStatus{Healthy: true}
	}
	return out, healthy
}

// HealthHandler serves GET /health/db. pool may be nil in tests, in which
// case pool stats are omitted.
func HealthHandler(pool *pgxpool.Pool, deps map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		statuses, healthy := CheckDependencies(c.Request().Context(), deps, 5*time.Second)

		body := map[string]interface{}{
			"status":       "healthy",
			"dependencies": statuses,
		}
		if pool != nil {
			body["pool"] = GetPoolStats(pool)
		}
		if !healthy {
			body["status"] = "unhealthy"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}
