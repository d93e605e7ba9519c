package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"manuscript-editor-api/internal/domain/entity"
)

// FeedbackRepository 反馈仓储实现
type FeedbackRepository struct {
	client *Client
}

// NewFeedbackRepository 创建反馈仓储
func NewFeedbackRepository(client *Client) *FeedbackRepository {
	return &FeedbackRepository{client: client}
}

// Create 追加一条反馈
func (r *FeedbackRepository) Create(ctx context.Context, feedback *entity.EditingFeedback) error {
	ctx, span := tracer.Start(ctx, "postgres.FeedbackRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(feedback).Error; err != nil {
		recordError(span, "feedback.create", err)
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// ListByChapter 获取章节全部反馈
func (r *FeedbackRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.EditingFeedback, error) {
	ctx, span := tracer.Start(ctx, "postgres.FeedbackRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var items []*entity.EditingFeedback
	if err := db.Where("chapter_id = ?", chapterID).Order("created_at DESC").Find(&items).Error; err != nil {
		recordError(span, "feedback.list_by_chapter", err)
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return items, nil
}

// SummaryRepository 摘要仓储实现
type SummaryRepository struct {
	client *Client
}

// NewSummaryRepository 创建摘要仓储
func NewSummaryRepository(client *Client) *SummaryRepository {
	return &SummaryRepository{client: client}
}

// Upsert 按 chapter_id 插入或替换摘要
func (r *SummaryRepository) Upsert(ctx context.Context, summary *entity.ChapterSummary) error {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "key_points", "characters", "places", "events", "degraded", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		recordError(span, "summary.upsert", err)
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

// GetByChapter 获取章节摘要
func (r *SummaryRepository) GetByChapter(ctx context.Context, chapterID string) (*entity.ChapterSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.GetByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var summary entity.ChapterSummary
	if err := db.First(&summary, "chapter_id = ?", chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "summary.get_by_chapter", err)
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &summary, nil
}
