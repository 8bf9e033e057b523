package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"YoForex/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth map[string]string

func (s staticAuth) Authenticate(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func serve(t *testing.T, mw echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	mw := RequireAuth(staticAuth{"good": "u1"})

	rec := serve(t, mw, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(t, mw, "bearer  good ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, "Basic good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, "Bearer forged").Code)
}

func TestRateLimiterPerKey(t *testing.T) {
	l := NewRateLimiter(60, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"), "burst exhausted")
	assert.True(t, l.Allow("u2"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("u1"), "one token per second refills")

	now = now.Add(time.Hour)
	l.Allow("u3")
	assert.Len(t, l.visitors, 1, "idle buckets are swept")
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewRateLimiter(1, 1)
	mw := RateLimit(l, metrics.NewWithRegisterer(prometheus.NewRegistry()))

	assert.Equal(t, http.StatusOK, serve(t, mw, "").Code)
	rec := serve(t, mw, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
