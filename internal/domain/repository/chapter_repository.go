package repository

import (
	"context"
	"time"

	"manuscript-editor-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
//
// 状态相关方法均为带条件的原子更新：
//   - 章节不存在返回 errors.ErrChapterNotFound
//   - 另一次分析持有未过期租约返回 errors.ErrAnalysisInProgress
//   - 租约已被其他运行接管时，CompleteAnalysis/FailAnalysis 同样返回 errors.ErrAnalysisInProgress
//   - 其余不允许的迁移返回 entity.ErrInvalidTransition
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// GetDetail 获取章节详情：全部反馈（新到旧）、摘要、书籍与项目
	GetDetail(ctx context.Context, id string) (*entity.Chapter, error)

	// Delete 删除章节，级联删除反馈与摘要
	Delete(ctx context.Context, id string) error

	// ListByBook 获取书籍章节（按章节号升序），每章附带最新一条发展性反馈
	ListByBook(ctx context.Context, bookID string) ([]*entity.Chapter, error)

	// ListCompletedSummaries 返回同书中已完成且有摘要的章节摘要，按章节号升序，不含 excludeChapterID
	ListCompletedSummaries(ctx context.Context, bookID, excludeChapterID string) ([]string, error)

	// BeginAnalysis PROCESSING -> ANALYZING，或领取 analysis_started_at 早于 staleBefore 的 ANALYZING
	BeginAnalysis(ctx context.Context, id string, now, staleBefore time.Time) error

	// CompleteAnalysis ANALYZING -> COMPLETED，仅当 analysis_started_at 仍等于 lease
	CompleteAnalysis(ctx context.Context, id string, lease, analyzedAt time.Time) error

	// FailAnalysis ANALYZING|PROCESSING -> FAILED，记录错误信息
	// lease 非零时仅当 analysis_started_at 仍等于 lease；零值用于尚未领取租约的章节
	FailAnalysis(ctx context.Context, id string, lease time.Time, message string) error

	// Resubmit PENDING|COMPLETED|FAILED -> PROCESSING，租约过期的 ANALYZING 也可重新排队
	Resubmit(ctx context.Context, id string, staleBefore time.Time) error
}

// FeedbackRepository 反馈仓储接口（只追加）
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.EditingFeedback) error

	// ListByChapter 按创建时间倒序
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.EditingFeedback, error)
}

// SummaryRepository 摘要仓储接口
type SummaryRepository interface {
	// Upsert 按 chapter_id 插入或整体替换
	Upsert(ctx context.Context, summary *entity.ChapterSummary) error

	// GetByChapter 不存在时返回 (nil, nil)
	GetByChapter(ctx context.Context, chapterID string) (*entity.ChapterSummary, error)
}

// LLMUsageEventRepository LLM 用量流水仓储
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	ListByChapter(ctx context.Context, chapterID string) ([]*entity.LLMUsageEvent, error)
}
