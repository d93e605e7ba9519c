package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolLimitsConcurrency(t *testing.T) {
	const size = 2
	var running, peak int32
	release := make(chan struct{})
	entered := make(chan struct{}, 5)

	pool := NewWorkerPool(size, func(ctx context.Context, job Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		entered <- struct{}{}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	})

	for i := 0; i < 5; i++ {
		if err := pool.Submit(context.Background(), Job{ChapterID: string(rune('a' + i))}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	for i := 0; i < size; i++ {
		<-entered
	}
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&running); got != size {
		t.Fatalf("running = %d, want %d", got, size)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := atomic.LoadInt32(&peak); got > size {
		t.Fatalf("peak concurrency = %d, want <= %d", got, size)
	}
}

func TestWorkerPoolShutdownDrains(t *testing.T) {
	var done int32
	pool := NewWorkerPool(1, func(ctx context.Context, job Job) error {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&done, 1)
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := pool.Submit(context.Background(), Job{ChapterID: "c"}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := atomic.LoadInt32(&done); got != 3 {
		t.Fatalf("completed jobs = %d, want 3", got)
	}

	if err := pool.Submit(context.Background(), Job{ChapterID: "late"}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Submit() after shutdown error = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPoolShutdownDeadlineCancelsJobs(t *testing.T) {
	pool := NewWorkerPool(1, func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := pool.Submit(context.Background(), Job{ChapterID: "stuck"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown() error = %v, want deadline exceeded", err)
	}
}

func TestWorkerPoolRejectsInvalidJob(t *testing.T) {
	pool := NewWorkerPool(1, func(context.Context, Job) error { return nil })
	defer pool.Shutdown(context.Background())

	if err := pool.Submit(context.Background(), Job{}); err == nil {
		t.Fatalf("Submit() with empty chapter id should fail")
	}
}

func TestHandlerRunsAnalysis(t *testing.T) {
	h := newHarness(t)
	_, book := h.store.addProjectBook("fantasy", 1, nil)
	ch := h.store.addChapter(book.ID, 1, "Once upon a time.", "PROCESSING")

	pool := NewWorkerPool(2, Handler(h.orch))
	if err := pool.Submit(context.Background(), Job{ChapterID: ch.ID, BookID: book.ID}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := h.store.chapter(ch.ID).Status; got != "COMPLETED" {
		t.Fatalf("status = %s, want COMPLETED", got)
	}
}
