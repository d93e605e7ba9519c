package entity

import (
	"time"

	"github.com/google/uuid"
)

// LLMUsageEvent 每次 LLM 调用的用量流水
type LLMUsageEvent struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:uuid;index"`
	ChapterID    string    `json:"chapter_id" gorm:"type:uuid;index;not null"`
	Workflow     string    `json:"workflow" gorm:"type:varchar(64);not null"`
	Tier         string    `json:"tier" gorm:"type:varchar(16);not null"`
	Provider     string    `json:"provider" gorm:"type:varchar(32)"`
	Model        string    `json:"model" gorm:"type:varchar(128);not null"`
	InputTokens  int       `json:"input_tokens" gorm:"not null;default:0"`
	OutputTokens int       `json:"output_tokens" gorm:"not null;default:0"`
	CostUSD      float64   `json:"cost_usd" gorm:"column:cost_usd;not null;default:0"`
	DurationMs   int       `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}

// NewLLMUsageEvent 创建用量流水
func NewLLMUsageEvent(projectID, chapterID, workflow, tier, provider, model string, usage ApiUsage, duration time.Duration) *LLMUsageEvent {
	return &LLMUsageEvent{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		ChapterID:    chapterID,
		Workflow:     workflow,
		Tier:         tier,
		Provider:     provider,
		Model:        model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      usage.CostUSD,
		DurationMs:   int(duration.Milliseconds()),
		CreatedAt:    time.Now(),
	}
}
