package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests per client in fixed windows stored in
// Redis, so every API replica enforces the same budget.
type RedisRateLimiter struct {
	rdb  redis.Scripter
	opts RateLimitOptions
}

type RateLimitOptions struct {
	Limit  int
	Window time.Duration
	Prefix string
	// FailOpen serves requests while Redis is unreachable.
	FailOpen bool
	// Exempt paths (health probes) are never counted.
	Exempt []string
}

var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisRateLimiter(rdb redis.Scripter, opts RateLimitOptions) *RedisRateLimiter {
	if opts.Limit <= 0 {
		opts.Limit = 120
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Prefix = strings.TrimSpace(opts.Prefix); opts.Prefix == "" {
		opts.Prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, opts: opts}
}

func (rl *RedisRateLimiter) Middleware(logger *slog.Logger) Middleware {
	exempt := make(map[string]bool, len(rl.opts.Exempt))
	for _, p := range rl.opts.Exempt {
		exempt[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			count, err := rl.incr(r.Context(), rl.opts.Prefix+":"+clientKey(r))
			if err != nil {
				Logger(r.Context(), logger).Warn("redis rate limiter error", "err", err)
				if rl.opts.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			remaining := int64(rl.opts.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.opts.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > int64(rl.opts.Limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.opts.Window.Seconds())))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	res, err := redisFixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.opts.Window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
