package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-editor-api/internal/infrastructure/persistence/redis"
	"manuscript-editor-api/internal/interfaces/http/dto"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

// RateLimitConfig 限流配置，Scope 区分不同限流桶（api、upload）
type RateLimitConfig struct {
	Enabled bool
	Scope   string
	Limit   int
	Window  time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// RateLimit 按客户端 IP 限流。限流器故障时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil || cfg.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.Scope == "" {
		cfg.Scope = "api"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		d, err := limiter.Allow(ctx, redis.RateLimitKey(cfg.Scope, c.ClientIP()), cfg.Limit, cfg.Window)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "scope", cfg.Scope, "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			c.Next()
			return
		}

		metrics.RateLimitHits.WithLabelValues(cfg.Scope).Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
		dto.ErrorWithDetail(c, http.StatusTooManyRequests, apperrors.ErrTooManyRequests.Message, &dto.ErrorDetail{
			ErrorCode: string(apperrors.ErrTooManyRequests.Code),
		})
		c.Abort()
	}
}
