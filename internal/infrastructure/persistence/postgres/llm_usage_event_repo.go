package postgres

import (
	"context"
	"fmt"

	"manuscript-editor-api/internal/domain/entity"
)

// LLMUsageEventRepository LLM 用量流水仓储实现
type LLMUsageEventRepository struct {
	client *Client
}

func NewLLMUsageEventRepository(client *Client) *LLMUsageEventRepository {
	return &LLMUsageEventRepository{client: client}
}

func (r *LLMUsageEventRepository) Create(ctx context.Context, event *entity.LLMUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(event).Error; err != nil {
		recordError(span, "llm_usage_event.create", err)
		return fmt.Errorf("failed to create llm usage event: %w", err)
	}
	return nil
}

// ListByChapter 按时间正序返回章节的用量流水
func (r *LLMUsageEventRepository) ListByChapter(ctx context.Context, chapterID string) ([]*entity.LLMUsageEvent, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.ListByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var events []*entity.LLMUsageEvent
	if err := db.Where("chapter_id = ?", chapterID).Order("created_at ASC").Find(&events).Error; err != nil {
		recordError(span, "llm_usage_event.list_by_chapter", err)
		return nil, fmt.Errorf("failed to list llm usage events: %w", err)
	}
	return events, nil
}
