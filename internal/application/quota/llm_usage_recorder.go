// Package quota 记录与汇总 LLM 用量流水
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/pkg/metrics"
)

// LLMUsageRecorder 将每次调用写入用量流水并累计费用指标
type LLMUsageRecorder struct {
	usageRepo repository.LLMUsageEventRepository
}

func NewLLMUsageRecorder(usageRepo repository.LLMUsageEventRepository) *LLMUsageRecorder {
	return &LLMUsageRecorder{
		usageRepo: usageRepo,
	}
}

func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}

	chapterID := strings.TrimSpace(in.ChapterID)
	if chapterID == "" {
		return fmt.Errorf("usage event requires a chapter id")
	}
	if in.Usage.InputTokens < 0 || in.Usage.OutputTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	metrics.LLMCostUSD.WithLabelValues(in.Workflow, string(in.Tier)).Add(in.Usage.CostUSD)

	evt := entity.NewLLMUsageEvent(
		strings.TrimSpace(in.ProjectID),
		chapterID,
		strings.TrimSpace(in.Workflow),
		string(in.Tier),
		strings.TrimSpace(in.Provider),
		strings.TrimSpace(in.Model),
		in.Usage,
		time.Duration(in.DurationMs)*time.Millisecond,
	)
	return r.usageRepo.Create(ctx, evt)
}

// ChapterUsage 章节用量明细与合计
type ChapterUsage struct {
	ChapterID string                  `json:"chapterId"`
	Events    []*entity.LLMUsageEvent `json:"events"`
	Total     entity.ApiUsage         `json:"total"`
}

// ChapterUsage 汇总章节的全部调用
func (r *LLMUsageRecorder) ChapterUsage(ctx context.Context, chapterID string) (*ChapterUsage, error) {
	events, err := r.usageRepo.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*entity.LLMUsageEvent{}
	}

	out := &ChapterUsage{ChapterID: chapterID, Events: events}
	for _, e := range events {
		out.Total = out.Total.Add(entity.ApiUsage{
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			TotalTokens:  e.InputTokens + e.OutputTokens,
			CostUSD:      e.CostUSD,
		})
	}
	return out, nil
}
