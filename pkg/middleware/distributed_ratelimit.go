package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter implements rate limiting using Redis
// This allows rate limits to be shared across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed using a Redis-backed counter
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)

	_, err := pipe.Exec(ctx)
	if err != nil {
		// On Redis error, fail open to prevent service disruption
		return true, fmt.Errorf("redis error: %w", err)
	}

	count := incr.Val()
	return count <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// TTL returns the time until the rate limit window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	return rl.redis.TTL(ctx, redisKey).Result()
}

// Reset clears the rate limit for a key (for testing or admin purposes)
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)
	return rl.redis.Del(ctx, redisKey).Err()
}

// DistributedRateLimitMiddleware provides HTTP rate limiting with Redis
type DistributedRateLimitMiddleware struct {
	userLimiter      *DistributedRateLimiter
	anonymousLimiter *DistributedRateLimiter
}

// NewDistributedRateLimitMiddleware creates a new Redis-backed rate limit middleware
func NewDistributedRateLimitMiddleware(redisClient *redis.Client, userConfig *RateLimitConfig) *DistributedRateLimitMiddleware {
	if userConfig == nil {
		userConfig = PerUserRateLimitConfig()
	}
	return &DistributedRateLimitMiddleware{
		userLimiter:      NewDistributedRateLimiter(redisClient, userConfig, "ratelimit:user"),
		anonymousLimiter: NewDistributedRateLimiter(redisClient, DefaultRateLimitConfig(), "ratelimit:anon"),
	}
}

// Handler wraps an HTTP handler with distributed rate limiting
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var key string
		var limiter *DistributedRateLimiter

		authCtx := GetAuthContext(r)
		if authCtx != nil && authCtx.User != nil {
			key = fmt.Sprintf("user:%d", authCtx.User.ID)
			limiter = m.userLimiter
		} else {
			key = "ip:" + getClientIP(r)
			limiter = m.anonymousLimiter
		}

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			// Redis unreachable: fail open, the request proceeds.
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			rateLimitExceeded(w, limiter.config)
			return
		}

		next.ServeHTTP(w, r)
	})
}
