package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/labstack/echo/v4"
)

// RateLimitConfig sets the per-caller token bucket. Buckets untouched for
// IdleTTL are dropped on the next sweep.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	IdleTTL           time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		IdleTTL:           10 * time.Minute,
	}
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// limiter keeps one bucket per caller. A single mutex is enough: each
// request holds it for a few arithmetic operations.
type limiter struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig, now func() time.Time) *limiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	return &limiter{cfg: cfg, buckets: make(map[string]*bucket), now: now, lastSweep: now()}
}

// take spends one token for key. It returns the tokens left and, when the
// bucket is empty, how long until the next token.
func (l *limiter) take(key string) (remaining int, wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	burst := float64(l.cfg.BurstSize)
	b, found := l.buckets[key]
	if !found {
		b = &bucket{tokens: burst, lastSeen: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastSeen).Seconds() * l.cfg.RequestsPerSecond
	if b.tokens > burst {
		b.tokens = burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		if l.cfg.RequestsPerSecond <= 0 {
			return 0, time.Second, false
		}
		return 0, time.Duration((1 - b.tokens) / l.cfg.RequestsPerSecond * float64(time.Second)), false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

func (l *limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.IdleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// callerKey identifies the bucket: the token subject once the JWT middleware
// has run, otherwise the client IP. Patients behind one NAT get their own
// buckets after login.
func callerKey(c echo.Context) string {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.RealIP()
}

// RateLimit throttles each caller to cfg.RequestsPerSecond with bursts of
// cfg.BurstSize.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(newLimiter(cfg, time.Now))
}

func rateLimit(l *limiter) echo.MiddlewareFunc {
	limit := strconv.FormatFloat(l.cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			remaining, wait, ok := l.take(callerKey(c))

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
