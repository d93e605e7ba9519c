package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EditingType 反馈类型
type EditingType string

const (
	EditingTypeDevelopmental EditingType = "DEVELOPMENTAL"
)

// EditingFeedback 持久化的反馈记录，只追加不覆盖
type EditingFeedback struct {
	ID               string            `json:"id" gorm:"type:uuid;primaryKey"`
	ChapterID        string            `json:"chapter_id" gorm:"type:uuid;index;not null"`
	Type             EditingType       `json:"type" gorm:"type:varchar(32);not null;default:'DEVELOPMENTAL'"`
	OverallScore     float64           `json:"overall_score" gorm:"not null"`
	Strengths        pq.StringArray    `json:"strengths" gorm:"type:text[]"`
	Weaknesses       pq.StringArray    `json:"weaknesses" gorm:"type:text[]"`
	Feedback         string            `json:"feedback" gorm:"type:text"`
	InlineHighlights []InlineHighlight `json:"inline_highlights" gorm:"type:jsonb;serializer:json"`
	ContinuityNotes  pq.StringArray    `json:"continuity_notes,omitempty" gorm:"type:text[]"`
	Degraded         bool              `json:"degraded" gorm:"not null;default:false"`
	Model            string            `json:"model,omitempty" gorm:"type:varchar(128)"`
	InputTokens      int               `json:"input_tokens" gorm:"not null;default:0"`
	OutputTokens     int               `json:"output_tokens" gorm:"not null;default:0"`
	TokensUsed       int               `json:"tokens_used" gorm:"not null;default:0"`
	CostUSD          float64           `json:"cost_usd" gorm:"column:cost_usd;not null;default:0"`
	CreatedAt        time.Time         `json:"created_at" gorm:"autoCreateTime;index"`
}

func (EditingFeedback) TableName() string {
	return "editing_feedback"
}

// NewDevelopmentalFeedback 由解析结果与用量构造反馈记录
func NewDevelopmentalFeedback(chapterID string, fb DevelopmentalFeedback, usage ApiUsage, model string, degraded bool) *EditingFeedback {
	highlights := fb.InlineHighlights
	if highlights == nil {
		highlights = []InlineHighlight{}
	}
	return &EditingFeedback{
		ID:               uuid.NewString(),
		ChapterID:        chapterID,
		Type:             EditingTypeDevelopmental,
		OverallScore:     fb.OverallScore,
		Strengths:        pq.StringArray(fb.Strengths),
		Weaknesses:       pq.StringArray(fb.Weaknesses),
		Feedback:         fb.Feedback,
		InlineHighlights: highlights,
		ContinuityNotes:  pq.StringArray(fb.ContinuityNotes),
		Degraded:         degraded,
		Model:            model,
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		TokensUsed:       usage.TotalTokens,
		CostUSD:          usage.CostUSD,
		CreatedAt:        time.Now(),
	}
}
