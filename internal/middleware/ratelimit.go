package middleware // Redis token bucket limiter

import (
	"context"  // context carries deadlines and cancellation
	"fmt"      // fmt wraps errors with context
	"log/slog" // structured logging
	"math"     // math for rounding money
	"net/http" // http defines status code constants
	"strconv"  // strconv converts numbers to text
	"strings"  // strings trims and normalises text
	"time"     // time for timestamps and timeouts

	"github.com/labstack/echo/v4"  // Echo web framework
	"github.com/redis/go-redis/v9" // Redis client

	"github.com/iliyamo/parcel-shipping/internal/config" // application configuration
)

// tokenBucketScript refills in whole intervals and takes one token atomically.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// RateLimiter is a Redis-backed token bucket. It fails open: when Redis is
// unreachable requests pass through.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	rdb    redis.Scripter
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter returns nil when limiting is disabled or rdb is nil; the
// Middleware of a nil limiter is a passthrough.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) *RateLimiter {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{cfg: cfg, rdb: rdb, logger: logger, now: time.Now}
}

type bucketResult struct {
	allowed   bool
	remaining int64
	retryMs   int64
}

func (rl *RateLimiter) take(ctx context.Context, key string) (bucketResult, error) {
	vals, err := tokenBucketScript.Run(ctx, rl.rdb, []string{key},
		rl.now().UnixMilli(),
		rl.cfg.Capacity,
		rl.cfg.RefillTokens,
		rl.cfg.RefillInterval.Milliseconds(),
		int64(rl.cfg.TTL/time.Second),
	).Result()
	if err != nil {
		return bucketResult{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return bucketResult{}, fmt.Errorf("unexpected script result %#v", vals)
	}
	return bucketResult{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retryMs:   asInt64(arr[2]),
	}, nil
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	if rl == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.cfg.IsExempt(c.Request().URL.Path) {
				return next(c)
			}
			key := buildRateKey(rl.cfg, c)
			res, err := rl.take(c.Request().Context(), key)
			if err != nil {
				if rl.cfg.Debug {
					rl.logger.Warn("ratelimit: redis error", "key", key, "error", err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if !res.allowed {
				secs := int(math.Ceil(float64(res.retryMs) / 1000.0))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				if rl.cfg.Debug {
					rl.logger.Info("ratelimit: blocked", "key", key, "retry_ms", res.retryMs)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			if rl.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	who := identity(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", who)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", who)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", who, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", who, "route", route)
	}
	return strings.Join(parts, ":")
}
