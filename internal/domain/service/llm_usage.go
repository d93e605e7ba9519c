package service

import (
	"context"

	"manuscript-editor-api/internal/domain/entity"
)

// ModelTier 模型价位档
type ModelTier string

const (
	// TierStandard 高质量档，用于发展性反馈
	TierStandard ModelTier = "standard"
	// TierCheap 低价档，用于章节摘要
	TierCheap ModelTier = "cheap"
)

// TierPrice 每百万 token 的美元单价
type TierPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var priceTable = map[ModelTier]TierPrice{
	TierStandard: {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	TierCheap:    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
}

// PriceFor 返回档位单价，未知档位按标准档计价
func PriceFor(tier ModelTier) TierPrice {
	if p, ok := priceTable[tier]; ok {
		return p
	}
	return priceTable[TierStandard]
}

// RawUsage 上游返回的原始 token 计数
type RawUsage struct {
	InputTokens  int
	OutputTokens int
}

// CalculateUsage 按档位单价计算用量与费用，负数按 0 处理
func CalculateUsage(raw RawUsage, tier ModelTier) entity.ApiUsage {
	in := max(raw.InputTokens, 0)
	out := max(raw.OutputTokens, 0)
	price := PriceFor(tier)

	inputCost := float64(in) / 1_000_000 * price.InputPerMillion
	outputCost := float64(out) / 1_000_000 * price.OutputPerMillion

	return entity.ApiUsage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
		CostUSD:      inputCost + outputCost,
	}
}

// LLMUsageInput 一次 LLM 调用的计费与观测数据
type LLMUsageInput struct {
	ProjectID string
	ChapterID string

	Workflow string
	Tier     ModelTier
	Provider string
	Model    string

	Usage      entity.ApiUsage
	DurationMs int
}

// LLMUsageRecorder 记录 LLM 用量流水，实现应为 best-effort
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}
