package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindow 在一次往返内完成清理、计数与登记，避免并发请求同时通过检查。
// 返回 {allowed, count, retry_after_ms}
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, count, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// Decision 一次限流判定
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter 基于有序集合的滑动窗口限流器
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 在 window 内最多放行 limit 次
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	defer span.End()

	now := time.Now().UnixMilli()
	// 同一毫秒的请求需要不同成员
	member := fmt.Sprintf("%d-%s", now, uuid.NewString()[:8])

	vals, err := slidingWindow.Run(ctx, l.client.rdb, []string{key}, now, window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return Decision{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	d := decisionFrom(vals, limit)
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Bool("ratelimit.allowed", d.Allowed),
		attribute.Int("ratelimit.remaining", d.Remaining),
	)
	return d, nil
}

func decisionFrom(vals []int64, limit int) Decision {
	if len(vals) < 3 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Limit:      limit,
		Remaining:  max(limit-int(vals[1]), 0),
		RetryAfter: time.Duration(max(vals[2], 0)) * time.Millisecond,
	}
}

// RateLimitKey 限流键：ratelimit:<scope>:<client>
func RateLimitKey(scope, clientID string) string {
	return "ratelimit:" + scope + ":" + clientID
}
