package analysis

import (
	"context"
	"fmt"
	"time"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// Submitter 把章节放入分析队列
type Submitter struct {
	chapters repository.ChapterRepository
	books    repository.BookRepository
	feedback repository.FeedbackRepository
	queue    Queue
	leaseTTL time.Duration
	now      func() time.Time
}

func NewSubmitter(
	chapters repository.ChapterRepository,
	books repository.BookRepository,
	feedback repository.FeedbackRepository,
	queue Queue,
	leaseTTL time.Duration,
) *Submitter {
	if leaseTTL <= 0 {
		leaseTTL = 15 * time.Minute
	}
	return &Submitter{
		chapters: chapters,
		books:    books,
		feedback: feedback,
		queue:    queue,
		leaseTTL: leaseTTL,
		now:      time.Now,
	}
}

// Enqueue 提交处于 PROCESSING 的章节；提交失败时章节转为 FAILED
func (s *Submitter) Enqueue(ctx context.Context, chapter *entity.Chapter, projectID string, attempt int) error {
	job := Job{
		ChapterID: chapter.ID,
		BookID:    chapter.BookID,
		ProjectID: projectID,
		Attempt:   max(attempt, 1),
	}
	if err := s.queue.Submit(ctx, job); err != nil {
		msg := fmt.Sprintf("failed to queue analysis: %v", err)
		if failErr := s.chapters.FailAnalysis(ctx, chapter.ID, time.Time{}, msg); failErr != nil {
			logger.Error(ctx, "failed to mark chapter failed after queue error", failErr, "chapter_id", chapter.ID)
		}
		return apperrors.Wrap(err, apperrors.CodeQueueError, "failed to queue analysis")
	}
	logger.Info(ctx, "analysis queued", "chapter_id", chapter.ID, "attempt", job.Attempt)
	return nil
}

// Reanalyze 将章节重新置为 PROCESSING 并提交
//
// 另一次分析持有未过期租约时返回 ErrAnalysisInProgress。
func (s *Submitter) Reanalyze(ctx context.Context, chapterID string) (*entity.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound
	}

	if err := s.chapters.Resubmit(ctx, chapterID, s.now().Add(-s.leaseTTL)); err != nil {
		return nil, err
	}
	chapter.Status = entity.ChapterStatusProcessing
	chapter.Error = nil

	projectID := ""
	if book, err := s.books.GetByID(ctx, chapter.BookID); err == nil && book != nil {
		projectID = book.ProjectID
	}

	attempt := 1
	if history, err := s.feedback.ListByChapter(ctx, chapterID); err == nil {
		attempt = len(history) + 1
	}

	if err := s.Enqueue(ctx, chapter, projectID, attempt); err != nil {
		return nil, err
	}
	return chapter, nil
}
