package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rod/server/internal/observability"
)

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "token refilled")
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	require.Equal(t, 2, rl.Len())

	now = now.Add(2 * idleTTL)
	rl.Allow("c")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	metrics := observability.NewMetrics()
	e.Use(RateLimit(NewRateLimiter(0.001, 1), metrics))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
	assert.Equal(t, int64(1), metrics.Snapshot().Events[EventRateLimited])
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	e := echo.New()
	extractor, err := ClientIPExtractor(nil)
	require.NoError(t, err)
	e.IPExtractor = extractor
	e.Use(RateLimit(NewRateLimiter(1, 1), nil))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("1.2.3.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("5.6.7.%d", i))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestClientIPExtractor(t *testing.T) {
	request := func(remote, forwarded string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set(echo.HeaderXForwardedFor, forwarded)
		return req
	}

	direct, err := ClientIPExtractor(nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", direct(request("10.0.0.1:1234", "1.2.3.4")))

	proxied, err := ClientIPExtractor([]string{"192.0.2.0/24"})
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", proxied(request("192.0.2.10:443", "1.2.3.4")), "trusted proxy forwards the client")
	assert.Equal(t, "10.0.0.1", proxied(request("10.0.0.1:1234", "1.2.3.4")), "untrusted peer cannot forward")

	_, err = ClientIPExtractor([]string{"not-a-cidr"})
	require.Error(t, err)
}

func TestRequestContextMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestContext(nil))
	var seen string
	e.GET("/ping", func(c echo.Context) error {
		seen = observability.RequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-123", seen)
	assert.Equal(t, seen, rec.Header().Get(echo.HeaderXRequestID))
}
