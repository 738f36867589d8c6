package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryWindowFixedBudget(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	w := NewMemoryWindow(10, time.Minute)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, _, err := w.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	now = start.Add(59 * time.Second)
	ok, retry, err := w.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)

	// other IPs have their own budget
	ok, _, _ = w.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)

	now = start.Add(time.Minute)
	ok, _, _ = w.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryWindowSweeps(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w := NewMemoryWindow(1, time.Minute)
	w.now = func() time.Time { return now }

	_, _, _ = w.Allow(context.Background(), "a")
	_, _, _ = w.Allow(context.Background(), "b")
	assert.Len(t, w.visitors, 2)

	now = now.Add(2 * time.Minute)
	_, _, _ = w.Allow(context.Background(), "c")
	assert.Len(t, w.visitors, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewMemoryWindow(2, time.Minute), zap.NewNop().Sugar())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{204, 204, 429}, codes)
}

type brokenWindow struct{}

func (brokenWindow) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(brokenWindow{}, zap.NewNop().Sugar())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedisWindowCounterKey(t *testing.T) {
	for _, prefix := range []string{"pulso:ratelimit:auth", "pulso:ratelimit:auth:"} {
		w := NewRedisWindow(nil, prefix, 10, time.Minute)
		assert.Equal(t, "pulso:ratelimit:auth:1.2.3.4:7", w.counterKey("1.2.3.4", 7), prefix)
	}
}
