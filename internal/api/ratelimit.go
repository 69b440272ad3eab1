package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digkill/resumegate/internal/metrics"
)

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = interval_ms - (now_ms - last_refill)
	if retry_after_ms < 0 then retry_after_ms = 0 end
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimiter is a Redis token bucket shared by all replicas. One token is
// added every Refill up to Capacity.
type RateLimiter struct {
	rdb      *redis.Client
	capacity int
	refill   time.Duration
	prefix   string
	now      func() time.Time
}

func NewRateLimiter(rdb *redis.Client, capacity int, refill time.Duration) *RateLimiter {
	if capacity <= 0 {
		capacity = 20
	}
	if refill <= 0 {
		refill = 3 * time.Second
	}
	return &RateLimiter{rdb: rdb, capacity: capacity, refill: refill, prefix: "ratelimit", now: time.Now}
}

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(math.Ceil(l.refill.Seconds() * float64(l.capacity)))
	if ttl < 1 {
		ttl = 1
	}
	vals, err := tokenBucketScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		l.now().UnixMilli(), l.capacity, l.refill.Milliseconds(), ttl,
	).Int64Slice()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{Allowed: true}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// rateLimit fails open when Redis is unavailable.
func (s *Server) rateLimit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			decision, err := s.limiter.Allow(r.Context(), route+":"+ip)
			if err != nil {
				s.log.Warn("rate limiter unavailable", "route", route, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			if !decision.Allowed {
				secs := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				metrics.RateLimited.WithLabelValues(route).Inc()
				s.writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.Trim(r.RemoteAddr, "[]")
	}
	if host == "" {
		return "unknown"
	}
	return host
}
