package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// histogram keeps non-cumulative bucket counts; export makes them cumulative.
type histogram struct {
	mu      sync.Mutex
	buckets []int64
	count   int64
	sum     uint64 // math.Float64bits
}

func newHistogram() *histogram {
	return &histogram{buckets: make([]int64, len(durationBuckets))}
}

func (h *histogram) observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sum)
		if atomic.CompareAndSwapUint64(&h.sum, old, math.Float64bits(math.Float64frombits(old)+v)) {
			break
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range durationBuckets {
		if v <= b {
			h.buckets[i]++
			return
		}
	}
}

func (h *histogram) cumulative() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.buckets))
	var running int64
	for i, c := range h.buckets {
		running += c
		out[i] = running
	}
	return out
}

// PoolGauge reports live database pool figures at scrape time.
type PoolGauge func() (total, idle int64)

// Metrics records per-route request durations and serves them in the
// Prometheus text format.
type Metrics struct {
	mu       sync.RWMutex
	requests map[string]*histogram // method|route|status
	active   int64
	pool     PoolGauge
}

func NewMetrics(pool PoolGauge) *Metrics {
	return &Metrics{requests: make(map[string]*histogram), pool: pool}
}

func labelsKey(method, route string, status int) string {
	return method + "|" + route + "|" + strconv.Itoa(status)
}

func (m *Metrics) histogramFor(key string) *histogram {
	m.mu.RLock()
	h, ok := m.requests[key]
	m.mu.RUnlock()
	if ok {
		return h
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.requests[key]; !ok {
		h = newHistogram()
		m.requests[key] = h
	}
	return h
}

// Middleware times every request under its route pattern, so ids in the
// path do not explode the label set.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			defer atomic.AddInt64(&m.active, -1)
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.histogramFor(labelsKey(c.Request().Method, route, status)).observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
		m.mu.RLock()
		keys := make([]string, 0, len(m.requests))
		for k := range m.requests {
			keys = append(keys, k)
		}
		m.mu.RUnlock()
		sort.Strings(keys)
		for _, k := range keys {
			parts := strings.SplitN(k, "|", 3)
			labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
			writeHistogram(&b, "http_server_request_duration_seconds", labels, m.histogramFor(k))
		}
		b.WriteByte('\n')

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n", atomic.LoadInt64(&m.active))

		if m.pool != nil {
			total, idle := m.pool()
			b.WriteString("\n# HELP db_pool_connections Database pool connections by state.\n")
			b.WriteString("# TYPE db_pool_connections gauge\n")
			fmt.Fprintf(&b, "db_pool_connections{state=\"total\"} %d\n", total)
			fmt.Fprintf(&b, "db_pool_connections{state=\"idle\"} %d\n", idle)
		}

		return c.String(http.StatusOK, b.String())
	}
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulative()
	count := atomic.LoadInt64(&h.count)
	for i, bound := range durationBuckets {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, bound, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, count)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, math.Float64frombits(atomic.LoadUint64(&h.sum)))
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, count)
}
