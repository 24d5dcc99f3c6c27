package ratelimit

import (
	"fmt"
	"net/http"

	"bounty-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware rate-limits requests per client IP. Limit-check failures never
// block traffic; losing Redis briefly degrades to no limiting rather than
// an outage on the redemption surface.
func (s *Service) Middleware(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		result, err := s.Allow(ctx, c.ClientIP(), limit)
		if err != nil {
			s.logger.Error(ctx, "rate limit check failed", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", result.RetryAfterMs/1000))
			s.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "client_ip", Value: c.ClientIP()},
				observability.Field{Key: "retry_after_ms", Value: result.RetryAfterMs},
			), "rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please slow down.",
				"code":        "RATE_LIMIT_EXCEEDED",
				"retry_after": result.RetryAfterMs / 1000,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
