// Package messaging 基于 Redis Streams 的章节分析任务队列
package messaging

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/pkg/logger"
)

// DefaultStream 章节分析任务流
const DefaultStream = "stream:chapter:analysis"

// stream entry 字段，任务平铺为 field/value 对，便于 XRANGE 直接查看
const (
	fieldJobID      = "job_id"
	fieldChapterID  = "chapter_id"
	fieldBookID     = "book_id"
	fieldProjectID  = "project_id"
	fieldAttempt    = "attempt"
	fieldRequestID  = "request_id"
	fieldTraceID    = "trace_id"
	fieldEnqueuedAt = "enqueued_at"
)

// Entry 流中的一条分析任务
type Entry struct {
	JobID      string
	Job        analysis.Job
	RequestID  string
	TraceID    string
	EnqueuedAt time.Time
}

// newEntry 从请求上下文带上 request_id 与 trace_id，worker 侧据此串联日志
func newEntry(ctx context.Context, job analysis.Job) Entry {
	e := Entry{
		JobID:      uuid.NewString(),
		Job:        job,
		EnqueuedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if id, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		e.RequestID = id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
	}
	return e
}

func (e Entry) fields() map[string]any {
	f := map[string]any{
		fieldJobID:      e.JobID,
		fieldChapterID:  e.Job.ChapterID,
		fieldAttempt:    strconv.Itoa(e.Job.Attempt),
		fieldEnqueuedAt: e.EnqueuedAt.Format(time.RFC3339Nano),
	}
	for k, v := range map[string]string{
		fieldBookID:    e.Job.BookID,
		fieldProjectID: e.Job.ProjectID,
		fieldRequestID: e.RequestID,
		fieldTraceID:   e.TraceID,
	} {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// parseEntry 解析 XREADGROUP 返回的字段；缺少 chapter_id 或 attempt 非数字视为坏消息
func parseEntry(values map[string]any) (Entry, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	e := Entry{
		JobID:     str(fieldJobID),
		RequestID: str(fieldRequestID),
		TraceID:   str(fieldTraceID),
		Job: analysis.Job{
			ChapterID: str(fieldChapterID),
			BookID:    str(fieldBookID),
			ProjectID: str(fieldProjectID),
		},
	}
	if err := e.Job.Validate(); err != nil {
		return Entry{}, err
	}
	if raw := str(fieldAttempt); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid attempt %q: %w", raw, err)
		}
		e.Job.Attempt = n
	}
	if raw := str(fieldEnqueuedAt); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.EnqueuedAt = t
		}
	}
	return e, nil
}

// withLogFields 把任务标识挂到 ctx 上，logger.FromContext 会自动输出
func (e Entry) withLogFields(ctx context.Context) context.Context {
	ctx = logger.WithContext(ctx, logger.JobIDKey, e.JobID)
	ctx = logger.WithContext(ctx, logger.ChapterIDKey, e.Job.ChapterID)
	if e.Job.BookID != "" {
		ctx = logger.WithContext(ctx, logger.BookIDKey, e.Job.BookID)
	}
	if e.Job.ProjectID != "" {
		ctx = logger.WithContext(ctx, logger.ProjectIDKey, e.Job.ProjectID)
	}
	if e.RequestID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, e.RequestID)
	}
	if e.TraceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, e.TraceID)
	}
	return ctx
}

// Backoff 失败重投的等待时间：第 n 次投递失败后等待 Initial*Multiplier^(n-1)，封顶 Max
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay deliveries 为已投递次数（>= 1）
func (b Backoff) Delay(deliveries int64) time.Duration {
	if deliveries < 1 {
		deliveries = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(deliveries-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// DeadLetterStream 超过投递上限的任务写入的流
func DeadLetterStream(stream string) string {
	return "dlq:" + stream
}
