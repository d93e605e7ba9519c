// Package parser 将模型的自由文本回复解码为结构化结果
//
// 解码永不失败：找不到 JSON、JSON 语法错误或结构校验不通过时返回 Degraded 结果，
// 其中保留原始文本。
package parser

import (
	"encoding/json"
	"fmt"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/workflow/node"
)

// 降级时填充的占位内容
const (
	FallbackScore    = 7.0
	FallbackStrength = "Analysis completed"
	FallbackWeakness = "Could not parse structured feedback"
)

// FeedbackResult 反馈解码结果
type FeedbackResult struct {
	Feedback entity.DevelopmentalFeedback
	Degraded bool
	// Raw 模型原始回复
	Raw string
	// Reason 降级原因，成功时为空
	Reason string
}

// SummaryResult 摘要解码结果
type SummaryResult struct {
	Summary  entity.ChapterSummaryData
	Degraded bool
	Raw      string
	Reason   string
}

type feedbackWire struct {
	OverallScore     float64           `json:"overallScore"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	Feedback         string            `json:"feedback"`
	InlineHighlights []json.RawMessage `json:"inlineHighlights"`
	ContinuityNotes  []string          `json:"continuityNotes"`
}

// DecodeFeedback 解码发展性反馈
// 单条格式错误的行内批注会被丢弃，不影响整体结果
func DecodeFeedback(text string) FeedbackResult {
	var lastErr error
	for _, candidate := range node.JSONCandidates(text) {
		fb, err := decodeFeedbackCandidate(candidate)
		if err == nil {
			return FeedbackResult{Feedback: fb, Raw: text}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return FeedbackResult{
		Feedback: FallbackFeedback(text),
		Degraded: true,
		Raw:      text,
		Reason:   lastErr.Error(),
	}
}

func decodeFeedbackCandidate(candidate string) (entity.DevelopmentalFeedback, error) {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return entity.DevelopmentalFeedback{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := feedbackSchema.Validate(doc); err != nil {
		return entity.DevelopmentalFeedback{}, fmt.Errorf("invalid feedback structure: %w", err)
	}

	var wire feedbackWire
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return entity.DevelopmentalFeedback{}, fmt.Errorf("failed to decode feedback: %w", err)
	}

	highlights := make([]entity.InlineHighlight, 0, len(wire.InlineHighlights))
	for _, raw := range wire.InlineHighlights {
		var h entity.InlineHighlight
		if err := json.Unmarshal(raw, &h); err != nil {
			continue
		}
		highlights = append(highlights, h)
	}

	return entity.DevelopmentalFeedback{
		OverallScore:     wire.OverallScore,
		Strengths:        orEmpty(wire.Strengths),
		Weaknesses:       orEmpty(wire.Weaknesses),
		Feedback:         wire.Feedback,
		InlineHighlights: highlights,
		ContinuityNotes:  wire.ContinuityNotes,
	}, nil
}

// FallbackFeedback 解析失败时的反馈，feedback 字段保留原文
func FallbackFeedback(raw string) entity.DevelopmentalFeedback {
	return entity.DevelopmentalFeedback{
		OverallScore:     FallbackScore,
		Strengths:        []string{FallbackStrength},
		Weaknesses:       []string{FallbackWeakness},
		Feedback:         raw,
		InlineHighlights: []entity.InlineHighlight{},
	}
}

// ParseFeedback 返回解码后的反馈，失败时返回 FallbackFeedback
func ParseFeedback(text string) entity.DevelopmentalFeedback {
	return DecodeFeedback(text).Feedback
}

// DecodeSummary 解码章节摘要
func DecodeSummary(text string) SummaryResult {
	var lastErr error
	for _, candidate := range node.JSONCandidates(text) {
		s, err := decodeSummaryCandidate(candidate)
		if err == nil {
			return SummaryResult{Summary: s, Raw: text}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return SummaryResult{
		Summary:  FallbackSummary(text),
		Degraded: true,
		Raw:      text,
		Reason:   lastErr.Error(),
	}
}

func decodeSummaryCandidate(candidate string) (entity.ChapterSummaryData, error) {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return entity.ChapterSummaryData{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := summarySchema.Validate(doc); err != nil {
		return entity.ChapterSummaryData{}, fmt.Errorf("invalid summary structure: %w", err)
	}

	var data entity.ChapterSummaryData
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return entity.ChapterSummaryData{}, fmt.Errorf("failed to decode summary: %w", err)
	}
	data.KeyPoints = orEmpty(data.KeyPoints)
	data.Entities.Characters = orEmpty(data.Entities.Characters)
	data.Entities.Places = orEmpty(data.Entities.Places)
	data.Entities.Events = orEmpty(data.Entities.Events)
	return data, nil
}

// FallbackSummary 解析失败时的摘要，summary 字段保留原文
func FallbackSummary(raw string) entity.ChapterSummaryData {
	return entity.ChapterSummaryData{
		Summary:   raw,
		KeyPoints: []string{},
		Entities: entity.SummaryEntities{
			Characters: []string{},
			Places:     []string{},
			Events:     []string{},
		},
	}
}

// ParseSummary 返回解码后的摘要，失败时返回 FallbackSummary
func ParseSummary(text string) entity.ChapterSummaryData {
	return DecodeSummary(text).Summary
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
