package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allowed bool
	count   int
	err     error

	calls int
	key   string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, int, error) {
	s.calls++
	s.key = key
	return s.allowed, s.count, s.err
}

func runLimited(t *testing.T, limiter RateLimiter, limit int) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/limited", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimitMiddleware(limiter, "test:write", limit, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	limiter := &stubLimiter{allowed: true, count: 3}

	rec := runLimited(t, limiter, 30)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, "test:write", limiter.key)
	assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "27", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_RejectsOverLimit(t *testing.T) {
	limiter := &stubLimiter{allowed: false, count: 31}

	rec := runLimited(t, limiter, 30)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimitMiddleware_PassesThroughOnLimiterError(t *testing.T) {
	limiter := &stubLimiter{err: context.DeadlineExceeded}

	rec := runLimited(t, limiter, 30)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_NilLimiterSkips(t *testing.T) {
	rec := runLimited(t, nil, 30)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
