// Package redis 提供 Redis 客户端、书籍上下文缓存与限流实现
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/pkg/logger"
)

var tracer = otel.Tracer("redis")

// 启动时最多等待约 30s
const (
	connectAttempts = 30
	connectDelay    = time.Second
	pingTimeout     = 2 * time.Second
)

// Client 持有 go-redis 连接池，缓存、限流与任务流共用
type Client struct {
	rdb *redis.Client
}

func options(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient 连接 Redis，未就绪时按固定间隔重试
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(options(cfg))
	ctx := context.Background()

	err := retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return rdb.Ping(pingCtx).Err()
		},
		retry.Attempts(connectAttempts),
		retry.Delay(connectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "redis not ready, retrying", "addr", rdb.Options().Addr, "attempt", n+1, "error", err.Error())
		}),
	)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", rdb.Options().Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Redis 底层客户端，供 Stream 生产者与消费者使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck /ready 探针
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
