package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 100000

// Producer 把分析任务追加到 Redis Stream，实现 analysis.Queue
type Producer struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewProducer stream 为空时使用 DefaultStream；maxLen 为近似裁剪上限
func NewProducer(rdb *redis.Client, stream string, maxLen int64) *Producer {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Stream 返回目标流名
func (p *Producer) Stream() string { return p.stream }

// Submit 发布任务后立即返回，由 analysis-worker 消费
func (p *Producer) Submit(ctx context.Context, job analysis.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "messaging.Submit", trace.WithAttributes(
		attribute.String("stream", p.stream),
		attribute.String("chapter_id", job.ChapterID),
		attribute.Int("attempt", job.Attempt),
	))
	defer span.End()

	entry := newEntry(ctx, job)
	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: entry.fields(),
	}).Result()
	if err != nil {
		span.RecordError(err)
		metrics.QueueSubmitted.WithLabelValues("redis_stream", "rejected").Inc()
		return fmt.Errorf("failed to publish analysis job: %w", err)
	}

	metrics.QueueSubmitted.WithLabelValues("redis_stream", "accepted").Inc()
	logger.Debug(ctx, "analysis job published",
		"stream", p.stream,
		"entry_id", id,
		"job_id", entry.JobID,
		"chapter_id", job.ChapterID,
	)
	return nil
}
