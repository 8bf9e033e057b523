package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	domrepo "YoForex/internal/domain/repository"
	xhttp "YoForex/pkg/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. Buckets idle for longer than idleTTL are
// dropped on the next sweep.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	refill   time.Duration
	lastGC   time.Time
	now      func() time.Time
}

// NewRateLimiter allows perMinute events per key with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		refill:   time.Minute / time.Duration(perMinute),
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// retryAfter is the whole number of seconds until one token is available again.
func (l *RateLimiter) retryAfter() int {
	return int(math.Ceil(l.refill.Seconds()))
}

// RateLimit throttles per authenticated user, falling back to the client IP.
func RateLimit(l *RateLimiter, metrics domrepo.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !l.Allow(key) {
				metrics.RecordRateLimited(c.Path())
				c.Response().Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests, slow down"))
			}
			return next(c)
		}
	}
}
