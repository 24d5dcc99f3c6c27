package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisClient "bounty-server/internal/clients/redis"
	"bounty-server/internal/observability"

	redislib "github.com/redis/go-redis/v9"
)

// window is the sliding rate-limit window
const window = time.Minute

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

// Service rate-limits claimant-facing requests with a Redis sliding window
type Service struct {
	redis  *redisClient.Client
	logger *observability.Logger
}

// New creates a new rate limiting service
func New(redis *redisClient.Client, logger *observability.Logger) *Service {
	return &Service{
		redis:  redis,
		logger: logger,
	}
}

// Allow records a request under the given key and reports whether it fits
// within limit requests per minute. Uses a Redis sorted set of request
// timestamps as a sliding window.
func (s *Service) Allow(ctx context.Context, key string, limit int) (Result, error) {
	redisKey := "rl:" + key
	now := time.Now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-window).UnixMilli()

	client := s.redis.GetClient()

	// Drop entries that fell out of the window
	if err := client.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStartMs, 10)).Err(); err != nil {
		return Result{}, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if int(count) >= limit {
		oldest, err := client.ZRange(ctx, redisKey, 0, 0).Result()
		if err != nil || len(oldest) == 0 {
			return Result{
				Allowed:      false,
				Limit:        limit,
				Remaining:    0,
				ResetAt:      now.Add(window),
				RetryAfterMs: int(window.Milliseconds()),
			}, nil
		}

		oldestTs, _ := strconv.ParseInt(oldest[0], 10, 64)
		resetAt := time.UnixMilli(oldestTs).Add(window)
		retryAfter := resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}

		return Result{
			Allowed:      false,
			Limit:        limit,
			Remaining:    0,
			ResetAt:      resetAt,
			RetryAfterMs: int(retryAfter.Milliseconds()),
		}, nil
	}

	err = client.ZAdd(ctx, redisKey, redislib.Z{
		Score:  float64(nowMs),
		Member: strconv.FormatInt(nowMs, 10),
	}).Err()
	if err != nil {
		return Result{}, fmt.Errorf("failed to record request: %w", err)
	}

	// Expire idle keys well past the window
	if err := s.redis.Expire(ctx, redisKey, 2*window); err != nil {
		s.logger.Warn(ctx, "failed to set expiration on rate limit key")
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count) - 1,
		ResetAt:   now.Add(window),
	}, nil
}
