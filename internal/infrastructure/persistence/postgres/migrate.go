package postgres

import (
	"context"
	"fmt"

	"manuscript-editor-api/internal/domain/entity"
)

// Models 参与自动迁移的模型，顺序满足外键依赖
func Models() []any {
	return []any{
		&entity.Project{},
		&entity.Book{},
		&entity.Chapter{},
		&entity.EditingFeedback{},
		&entity.ChapterSummary{},
		&entity.LLMUsageEvent{},
	}
}

// AutoMigrate 创建或更新表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		recordError(span, "auto_migrate", err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	// ListCompletedSummaries 按 (book_id, status) 过滤
	if err := c.db.WithContext(ctx).Exec(
		"CREATE INDEX IF NOT EXISTS idx_chapters_book_status ON chapters (book_id, status)",
	).Error; err != nil {
		recordError(span, "auto_migrate", err)
		return fmt.Errorf("failed to create chapter status index: %w", err)
	}
	return nil
}
