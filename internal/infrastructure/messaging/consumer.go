package messaging

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

// JobHandler 处理一条分析任务；返回错误时条目留在 pending 中按退避重投
type JobHandler func(ctx context.Context, job analysis.Job) error

// ConsumerConfig 消费者配置，零值字段使用默认值
type ConsumerConfig struct {
	Stream string
	Group  string
	Name   string
	// Block XREADGROUP 单次阻塞时长
	Block time.Duration
	// AdoptInterval 检查遗留条目与积压的周期
	AdoptInterval time.Duration
	// AdoptIdle 其他消费者的 pending 条目空闲超过该时长才接管（消费者崩溃）
	AdoptIdle time.Duration
	// MaxDeliveries 投递次数达到上限仍失败则转入死信流
	MaxDeliveries int64
	Backoff       Backoff
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Group == "" {
		c.Group = "analysis-workers"
	}
	if c.Block <= 0 {
		c.Block = 5 * time.Second
	}
	if c.AdoptInterval <= 0 {
		c.AdoptInterval = 30 * time.Second
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 3
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff = Backoff{Initial: time.Second, Max: time.Minute, Multiplier: 2}
	}
	// 接管阈值必须大于最长退避，否则会抢走同伴正在等待重投的条目
	if c.AdoptIdle <= 2*c.Backoff.Max {
		c.AdoptIdle = max(5*time.Minute, 2*c.Backoff.Max)
	}
	return c
}

// Consumer 以消费者组方式读取分析任务，至少一次投递
type Consumer struct {
	rdb    *redis.Client
	cfg    ConsumerConfig
	handle JobHandler
}

// NewConsumer 创建消费者
func NewConsumer(rdb *redis.Client, cfg ConsumerConfig, handle JobHandler) *Consumer {
	return &Consumer{rdb: rdb, cfg: cfg.withDefaults(), handle: handle}
}

// Run 阻塞消费直到 ctx 取消
func (c *Consumer) Run(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log := logger.FromContext(ctx).With("stream", c.cfg.Stream, "group", c.cfg.Group, "consumer", c.cfg.Name)
	log.Info("consumer started")

	var nextAdopt time.Time
	for ctx.Err() == nil {
		c.retryDue(ctx)
		if now := time.Now(); now.After(nextAdopt) {
			c.adoptAbandoned(ctx)
			c.observeLag(ctx)
			nextAdopt = now.Add(c.cfg.AdoptInterval)
		}

		if err := c.readNew(ctx); err != nil {
			log.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}

	log.Info("consumer stopped")
	return nil
}

func (c *Consumer) readNew(ctx context.Context) error {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    1,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	for _, s := range res {
		for _, msg := range s.Messages {
			c.deliver(ctx, msg, 1)
		}
	}
	return nil
}

// deliver deliveries 为包含本次在内的投递次数
func (c *Consumer) deliver(ctx context.Context, msg redis.XMessage, deliveries int64) {
	ctx, span := tracer.Start(ctx, "messaging.Deliver", trace.WithAttributes(
		attribute.String("stream", c.cfg.Stream),
		attribute.String("entry_id", msg.ID),
		attribute.Int64("deliveries", deliveries),
	))
	defer span.End()

	entry, err := parseEntry(msg.Values)
	if err != nil {
		logger.Error(ctx, "dropping malformed analysis entry", err, "entry_id", msg.ID)
		c.settle(ctx, msg.ID, "invalid")
		return
	}
	ctx = entry.withLogFields(ctx)

	if err := c.handle(ctx, entry.Job); err != nil {
		span.RecordError(err)
		if deliveries >= c.cfg.MaxDeliveries {
			c.deadLetter(ctx, msg, err)
			return
		}
		metrics.RedisStreamProcessed.WithLabelValues(c.cfg.Stream, "retry").Inc()
		logger.Warn(ctx, "analysis job failed, will retry",
			"error", err.Error(),
			"deliveries", deliveries,
			"retry_in", c.cfg.Backoff.Delay(deliveries).String(),
		)
		return
	}
	c.settle(ctx, msg.ID, "success")
}

// redeliver 已达上限的条目直接转入死信流，不再执行
func (c *Consumer) redeliver(ctx context.Context, msg redis.XMessage, deliveries int64) {
	if deliveries > c.cfg.MaxDeliveries {
		c.deadLetter(ctx, msg, fmt.Errorf("exceeded %d deliveries", c.cfg.MaxDeliveries))
		return
	}
	c.deliver(ctx, msg, deliveries)
}

func (c *Consumer) settle(ctx context.Context, id, outcome string) {
	metrics.RedisStreamProcessed.WithLabelValues(c.cfg.Stream, outcome).Inc()
	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		logger.Error(ctx, "failed to ack stream entry", err, "entry_id", id)
	}
}

// deadLetter 写入失败时条目保持 pending，下一轮重试写入
func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, cause error) {
	values := make(map[string]any, len(msg.Values)+4)
	maps.Copy(values, msg.Values)
	values["source_stream"] = c.cfg.Stream
	values["source_entry_id"] = msg.ID
	values["error"] = cause.Error()
	values["failed_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStream(c.cfg.Stream),
		Values: values,
	}).Err(); err != nil {
		logger.Error(ctx, "failed to write dead letter", err, "entry_id", msg.ID)
		return
	}
	logger.Warn(ctx, "analysis job dead-lettered", "entry_id", msg.ID, "error", cause.Error())
	c.settle(ctx, msg.ID, "dead_lettered")
}

// retryDue 重投本消费者名下退避期已满的失败条目
func (c *Consumer) retryDue(ctx context.Context) {
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Start:    "-",
		End:      "+",
		Count:    16,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Error(ctx, "failed to list pending entries", err)
		}
		return
	}

	for _, p := range pending {
		wait := c.cfg.Backoff.Delay(p.RetryCount)
		if p.Idle < wait {
			continue
		}
		claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			MinIdle:  wait,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			logger.Error(ctx, "failed to claim pending entry", err, "entry_id", p.ID)
			continue
		}
		for _, msg := range claimed {
			c.redeliver(ctx, msg, p.RetryCount+1)
		}
	}
}

// adoptAbandoned 接管其他消费者长时间未确认的条目
func (c *Consumer) adoptAbandoned(ctx context.Context) {
	claimed, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		MinIdle:  c.cfg.AdoptIdle,
		Start:    "0-0",
		Count:    16,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Error(ctx, "failed to adopt abandoned entries", err)
		}
		return
	}
	for _, msg := range claimed {
		c.redeliver(ctx, msg, c.deliveries(ctx, msg.ID))
	}
}

// deliveries 查询条目当前投递次数，查询失败按首次处理
func (c *Consumer) deliveries(ctx context.Context, id string) int64 {
	res, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(res) == 0 {
		return 1
	}
	return res[0].RetryCount
}

func (c *Consumer) observeLag(ctx context.Context) {
	groups, err := c.rdb.XInfoGroups(ctx, c.cfg.Stream).Result()
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.Name == c.cfg.Group {
			metrics.RedisStreamLag.WithLabelValues(c.cfg.Stream, g.Name).Set(float64(g.Lag))
		}
	}
}
