package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/response"
	"github.com/stemsi/exstem-practice/internal/service"
)

// Consumer is the generic fixed-window limiter.
type Consumer interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) (*service.RateLimitResult, error)
}

// RateLimitByIP throttles requests per client IP using the shared counter
// store, so every instance sees the same counts.
func RateLimitByIP(limiter Consumer, limit int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "ip_rate_limiter").Logger()

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		res, err := limiter.Consume(c.Request.Context(), config.CacheKey.ClientIPRateKey(ip), limit, window)
		if err != nil {
			log.Error().Err(err).Str("ip", ip).Msg("Rate limit check failed")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrDependencyUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			metrics.RateLimitDecisions.WithLabelValues("api_ip", "denied").Inc()
			c.Header("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
			response.AbortFailWithFields(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded, map[string]string{
				"remaining":           strconv.Itoa(res.Remaining),
				"retry_after_seconds": strconv.Itoa(res.RetryAfterSeconds),
			})
			return
		}

		metrics.RateLimitDecisions.WithLabelValues("api_ip", "allowed").Inc()
		c.Next()
	}
}
