package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"manuscript-editor-api/pkg/metrics"
)

const cacheName = "book_context"

// BookContextKey 书籍分析头信息（书号、项目类型与系列长度）的缓存键
func BookContextKey(bookID string) string {
	return "ctx:book:" + bookID
}

// Cache 读穿缓存。Redis 故障只降低命中率，不影响结果
type Cache struct {
	client *Client
	loads  singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// GetOrLoad 命中时返回缓存的 JSON；未命中时调用 load，同键并发只加载一次，结果以 JSON 写回
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "cache.GetOrLoad")
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	if raw, ok := c.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return raw, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := c.loads.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value: %w", err)
		}
		if err := c.client.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.CacheRequests.WithLabelValues(cacheName, "hit").Inc()
		return raw, true
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues(cacheName, "miss").Inc()
	default:
		metrics.CacheRequests.WithLabelValues(cacheName, "error").Inc()
	}
	return nil, false
}

// InvalidateBookContexts 项目类型或系列长度变化、书籍删除后清除对应缓存
func (c *Cache) InvalidateBookContexts(ctx context.Context, bookIDs ...string) error {
	if len(bookIDs) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "cache.InvalidateBookContexts")
	defer span.End()
	span.SetAttributes(attribute.Int("cache.key_count", len(bookIDs)))

	keys := make([]string, len(bookIDs))
	for i, id := range bookIDs {
		keys[i] = BookContextKey(id)
	}
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to invalidate book contexts: %w", err)
	}
	return nil
}
