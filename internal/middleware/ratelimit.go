package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"picshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CodeRateLimited is the error code of a 429 response.
const CodeRateLimited = "RATE_LIMITED"

// ErrNoLimiterStore is returned when limits are enforced but Redis is absent.
var ErrNoLimiterStore = errors.New("rate limit store unavailable")

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// Quota is the outcome of one rate limit check.
type Quota struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts requests in Redis fixed windows. A limiter that is not
// enforced lets every request through without touching Redis.
type RateLimiter struct {
	rdb      *redis.Client
	enforced bool
}

// NewRateLimiter returns a limiter backed by rdb. enforced normally comes
// from config.Config.RateLimitsEnforced.
func NewRateLimiter(rdb *redis.Client, enforced bool) *RateLimiter {
	return &RateLimiter{rdb: rdb, enforced: enforced}
}

// Check counts one hit of id against resource in a fixed window.
// The counter and its expiry are set in one round trip, so a crash between
// the two cannot leave a key without TTL.
func (l *RateLimiter) Check(ctx context.Context, resource, id string, limit int, window time.Duration) (Quota, error) {
	if !l.enforced {
		return Quota{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if l.rdb == nil {
		return Quota{}, ErrNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Quota{}, err
	}

	count := int(incr.Val())
	q := Quota{Allowed: count <= limit, Limit: limit, Remaining: max(limit-count, 0)}
	if !q.Allowed {
		q.RetryAfter = ttl.Val()
		if q.RetryAfter <= 0 {
			q.RetryAfter = window
		}
	}
	return q, nil
}

// Limit allows limit requests per window for each caller, keyed by the
// authenticated user id or else the client IP. name labels the counter; the
// request path is used when it is omitted. Redis failures let requests through.
func (l *RateLimiter) Limit(limit int, window time.Duration, name ...string) fiber.Handler {
	return l.LimitWithPolicy(limit, window, FailOpen, name...)
}

// LimitWithPolicy is Limit with an explicit FailPolicy.
func (l *RateLimiter) LimitWithPolicy(limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			caller = fmt.Sprintf("user:%d", uid)
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		q, err := l.Check(c.UserContext(), resource, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting request",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Service temporarily unavailable",
				Code:  models.CodeInternal,
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(q.RetryAfter.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  CodeRateLimited,
			})
		}
		return c.Next()
	}
}
