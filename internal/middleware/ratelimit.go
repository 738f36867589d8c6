package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FixedWindow admits at most a fixed number of events per key per window.
type FixedWindow interface {
	// Allow records one event for key and reports whether it fits the
	// current window, plus the time left until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type visitor struct {
	limiter     *rate.Limiter
	windowStart time.Time
}

// MemoryWindow keeps one budget per key in process memory. Each window is a
// rate.Limiter with a zero refill rate, so its burst is spent exactly once.
type MemoryWindow struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryWindow(limit int, window time.Duration) *MemoryWindow {
	return &MemoryWindow{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (m *MemoryWindow) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	v, ok := m.visitors[key]
	if !ok || now.Sub(v.windowStart) >= m.window {
		v = &visitor{limiter: rate.NewLimiter(0, m.limit), windowStart: now}
		m.visitors[key] = v
	}

	remaining := m.window - now.Sub(v.windowStart)
	return v.limiter.AllowN(now, 1), remaining, nil
}

// sweep drops finished windows at most once per window length.
func (m *MemoryWindow) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for key, v := range m.visitors {
		if now.Sub(v.windowStart) >= m.window {
			delete(m.visitors, key)
		}
	}
}

// RedisWindow shares budgets between instances. Windows are aligned to
// multiples of the window length since the epoch.
type RedisWindow struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisWindow stores counters under "<prefix>:<key>:<slot>". A trailing
// colon on prefix is dropped.
func NewRedisWindow(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{rdb: rdb, prefix: strings.TrimSuffix(prefix, ":"), limit: limit, window: window, now: time.Now}
}

func (r *RedisWindow) counterKey(key string, slot int64) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, slot)
}

func (r *RedisWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := r.now()
	slot := now.UnixNano() / int64(r.window)
	remaining := time.Duration((slot+1)*int64(r.window) - now.UnixNano())
	redisKey := r.counterKey(key, slot)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return false, remaining, err
	}
	return incr.Val() <= int64(r.limit), remaining, nil
}

// RateLimit rejects requests over the per-IP budget with 429. If the
// limiter itself fails the request is let through and the error logged.
func RateLimit(limiter FixedWindow, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			ok, retryAfter, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Errorf("Error checking rate limit: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSONError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
