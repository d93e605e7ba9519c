package analysis

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

// ErrPoolClosed Shutdown 之后提交任务
var ErrPoolClosed = errors.New("analysis worker pool is closed")

// WorkerPool 进程内有界并发队列
//
// Submit 立即返回，任务在后台等待空位；同时运行的任务数不超过 size。
type WorkerPool struct {
	handler func(ctx context.Context, job Job) error
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool 创建进程内队列，size <= 0 时按 1 处理
func NewWorkerPool(size int, handler func(ctx context.Context, job Job) error) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		handler: handler,
		sem:     semaphore.NewWeighted(int64(size)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit 提交任务
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		metrics.QueueSubmitted.WithLabelValues("memory", "rejected").Inc()
		return ErrPoolClosed
	}

	// 任务脱离请求生命周期，只保留日志字段
	runCtx := p.ctx
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		runCtx = logger.WithContext(runCtx, logger.RequestIDKey, reqID)
	}

	p.wg.Add(1)
	go p.run(runCtx, job)
	metrics.QueueSubmitted.WithLabelValues("memory", "accepted").Inc()
	return nil
}

func (p *WorkerPool) run(ctx context.Context, job Job) {
	defer p.wg.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		logger.Warn(ctx, "analysis job dropped on shutdown", "chapter_id", job.ChapterID)
		return
	}
	defer p.sem.Release(1)

	metrics.WorkerPoolInFlight.Inc()
	defer metrics.WorkerPoolInFlight.Dec()

	if err := p.handler(ctx, job); err != nil {
		logger.Error(ctx, "analysis job failed", err, "chapter_id", job.ChapterID)
	}
}

// Shutdown 停止接收任务并等待运行中的任务结束
//
// ctx 到期后取消尚未开始与正在运行的任务。
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
