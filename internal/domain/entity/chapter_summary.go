package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ChapterSummary 章节摘要，每章至多一条，重新分析时整体替换
type ChapterSummary struct {
	ID         string         `json:"id" gorm:"type:uuid;primaryKey"`
	ChapterID  string         `json:"chapter_id" gorm:"type:uuid;uniqueIndex;not null"`
	Summary    string         `json:"summary" gorm:"type:text;not null"`
	KeyPoints  pq.StringArray `json:"key_points" gorm:"type:text[]"`
	Characters pq.StringArray `json:"characters" gorm:"type:text[]"`
	Places     pq.StringArray `json:"places" gorm:"type:text[]"`
	Events     pq.StringArray `json:"events" gorm:"type:text[]"`
	Degraded   bool           `json:"degraded" gorm:"not null;default:false"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ChapterSummary) TableName() string {
	return "chapter_summaries"
}

// NewChapterSummary 由摘要结果构造记录
func NewChapterSummary(chapterID string, data ChapterSummaryData, degraded bool) *ChapterSummary {
	now := time.Now()
	return &ChapterSummary{
		ID:         uuid.NewString(),
		ChapterID:  chapterID,
		Summary:    data.Summary,
		KeyPoints:  pq.StringArray(data.KeyPoints),
		Characters: pq.StringArray(data.Entities.Characters),
		Places:     pq.StringArray(data.Entities.Places),
		Events:     pq.StringArray(data.Entities.Events),
		Degraded:   degraded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Data 还原为摘要结果
func (s *ChapterSummary) Data() ChapterSummaryData {
	return ChapterSummaryData{
		Summary:   s.Summary,
		KeyPoints: nonNil(s.KeyPoints),
		Entities: SummaryEntities{
			Characters: nonNil(s.Characters),
			Places:     nonNil(s.Places),
			Events:     nonNil(s.Events),
		},
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
