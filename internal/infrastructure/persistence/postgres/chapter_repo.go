package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"manuscript-editor-api/internal/domain/entity"
	apperrors "manuscript-editor-api/pkg/errors"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit("Book", "Feedback", "Summary").Create(chapter).Error; err != nil {
		recordError(span, "chapter.create", err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "chapter.get_by_id", err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetDetail 获取章节详情（轮询接口）
func (r *ChapterRepository) GetDetail(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetDetail")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	err := db.
		Preload("Feedback", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Summary").
		Preload("Book.Project").
		First(&chapter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "chapter.get_detail", err)
		return nil, fmt.Errorf("failed to get chapter detail: %w", err)
	}
	return &chapter, nil
}

// Delete 删除章节
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Chapter{}, "id = ?", id).Error; err != nil {
		recordError(span, "chapter.delete", err)
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}

// ListByBook 获取书籍章节，正文不返回，每章只带最新一条发展性反馈
func (r *ChapterRepository) ListByBook(ctx context.Context, bookID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByBook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	err := db.
		Omit("content").
		Preload("Feedback", `id IN (
			SELECT DISTINCT ON (chapter_id) id FROM editing_feedback
			WHERE type = ? ORDER BY chapter_id, created_at DESC
		)`, entity.EditingTypeDevelopmental).
		Where("book_id = ?", bookID).
		Order("number ASC, created_at ASC").
		Find(&chapters).Error
	if err != nil {
		recordError(span, "chapter.list_by_book", err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// ListCompletedSummaries 获取同书中已完成章节的摘要
func (r *ChapterRepository) ListCompletedSummaries(ctx context.Context, bookID, excludeChapterID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListCompletedSummaries")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var summaries []string
	err := db.Table("chapter_summaries AS s").
		Joins("JOIN chapters AS c ON c.id = s.chapter_id").
		Where("c.book_id = ? AND c.status = ? AND c.id <> ?", bookID, entity.ChapterStatusCompleted, excludeChapterID).
		Order("c.number ASC, c.created_at ASC").
		Pluck("s.summary", &summaries).Error
	if err != nil {
		recordError(span, "chapter.list_completed_summaries", err)
		return nil, fmt.Errorf("failed to list chapter summaries: %w", err)
	}
	return summaries, nil
}

// BeginAnalysis 领取分析租约
func (r *ChapterRepository) BeginAnalysis(ctx context.Context, id string, now, staleBefore time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.BeginAnalysis")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Chapter{}).
		Where("id = ?", id).
		Where("status IN ? OR (status = ? AND analysis_started_at < ?)",
			entity.SourceStatuses(entity.EventBegin), entity.ChapterStatusAnalyzing, staleBefore).
		Updates(map[string]any{
			"status":              entity.ChapterStatusAnalyzing,
			"analysis_started_at": entity.LeaseStamp(now),
			"error":               gorm.Expr("NULL"),
			"updated_at":          now,
		})
	if res.Error != nil {
		recordError(span, "chapter.begin_analysis", res.Error)
		return fmt.Errorf("failed to begin analysis: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.transitionError(ctx, id, entity.EventBegin)
	}
	return nil
}

// CompleteAnalysis 标记分析完成
func (r *ChapterRepository) CompleteAnalysis(ctx context.Context, id string, lease, analyzedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CompleteAnalysis")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Chapter{}).
		Where("id = ? AND status IN ?", id, entity.SourceStatuses(entity.EventComplete)).
		Where("analysis_started_at = ?", entity.LeaseStamp(lease)).
		Updates(map[string]any{
			"status":      entity.ChapterStatusCompleted,
			"analyzed_at": analyzedAt,
			"error":       gorm.Expr("NULL"),
			"updated_at":  analyzedAt,
		})
	if res.Error != nil {
		recordError(span, "chapter.complete_analysis", res.Error)
		return fmt.Errorf("failed to complete analysis: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.transitionError(ctx, id, entity.EventComplete)
	}
	return nil
}

// FailAnalysis 标记分析失败
func (r *ChapterRepository) FailAnalysis(ctx context.Context, id string, lease time.Time, message string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.FailAnalysis")
	defer span.End()

	db := getDB(ctx, r.client.db)
	q := db.Model(&entity.Chapter{}).
		Where("id = ? AND status IN ?", id, entity.SourceStatuses(entity.EventFail))
	if !lease.IsZero() {
		q = q.Where("analysis_started_at = ?", entity.LeaseStamp(lease))
	}
	res := q.Updates(map[string]any{
			"status":     entity.ChapterStatusFailed,
			"error":      message,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		recordError(span, "chapter.fail_analysis", res.Error)
		return fmt.Errorf("failed to mark analysis failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.transitionError(ctx, id, entity.EventFail)
	}
	return nil
}

// Resubmit 重新进入排队状态
func (r *ChapterRepository) Resubmit(ctx context.Context, id string, staleBefore time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Resubmit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	res := db.Model(&entity.Chapter{}).
		Where("id = ?", id).
		Where("status IN ? OR (status = ? AND analysis_started_at < ?)",
			entity.SourceStatuses(entity.EventResubmit), entity.ChapterStatusAnalyzing, staleBefore).
		Updates(map[string]any{
			"status":              entity.ChapterStatusProcessing,
			"analysis_started_at": gorm.Expr("NULL"),
			"error":               gorm.Expr("NULL"),
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		recordError(span, "chapter.resubmit", res.Error)
		return fmt.Errorf("failed to resubmit chapter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.transitionError(ctx, id, entity.EventResubmit)
	}
	return nil
}

// transitionError 条件更新未命中时区分原因
func (r *ChapterRepository) transitionError(ctx context.Context, id string, event entity.ChapterEvent) error {
	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	err := db.Select("id", "status").First(&chapter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrChapterNotFound
		}
		return fmt.Errorf("failed to load chapter status: %w", err)
	}
	// complete/fail 在 ANALYZING 下未命中说明租约已被其他运行接管
	if chapter.Status == entity.ChapterStatusAnalyzing {
		return apperrors.ErrAnalysisInProgress
	}
	return entity.ErrInvalidTransition.WithDetail(
		fmt.Sprintf("%s is not allowed while chapter is %s", event, chapter.Status))
}
