package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ChapterStatus 章节分析状态
type ChapterStatus string

const (
	ChapterStatusPending    ChapterStatus = "PENDING"
	ChapterStatusProcessing ChapterStatus = "PROCESSING"
	ChapterStatusAnalyzing  ChapterStatus = "ANALYZING"
	ChapterStatusCompleted  ChapterStatus = "COMPLETED"
	ChapterStatusFailed     ChapterStatus = "FAILED"
)

// AllChapterStatuses 全部状态，按生命周期顺序
var AllChapterStatuses = []ChapterStatus{
	ChapterStatusPending,
	ChapterStatusProcessing,
	ChapterStatusAnalyzing,
	ChapterStatusCompleted,
	ChapterStatusFailed,
}

// IsTerminal 是否为终态（轮询可以停止）
func (s ChapterStatus) IsTerminal() bool {
	return s == ChapterStatusCompleted || s == ChapterStatusFailed
}

// Chapter 上传的章节
type Chapter struct {
	ID                string             `json:"id" gorm:"type:uuid;primaryKey"`
	BookID            string             `json:"book_id" gorm:"type:uuid;index:idx_chapters_book_number;not null"`
	Book              *Book              `json:"book,omitempty" gorm:"foreignKey:BookID"`
	Number            int                `json:"number" gorm:"index:idx_chapters_book_number;not null"`
	Title             string             `json:"title" gorm:"type:varchar(255);not null"`
	Content           string             `json:"content,omitempty" gorm:"type:text;not null"`
	WordCount         int                `json:"word_count" gorm:"not null;default:0"`
	Status            ChapterStatus      `json:"status" gorm:"type:varchar(20);index;not null;default:'PENDING'"`
	Error             *string            `json:"error,omitempty" gorm:"type:text"`
	AnalysisStartedAt *time.Time         `json:"analysis_started_at,omitempty"`
	AnalyzedAt        *time.Time         `json:"analyzed_at,omitempty"`
	Feedback          []*EditingFeedback `json:"feedback,omitempty" gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE"`
	Summary           *ChapterSummary    `json:"summary,omitempty" gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建章节，title 为空时使用 "Chapter N"
func NewChapter(bookID string, number int, title, content string) *Chapter {
	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", number)
	}
	now := time.Now()
	c := &Chapter{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Number:    number,
		Title:     title,
		Status:    ChapterStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.SetContent(content)
	return c
}

// SetContent 设置正文并重新统计词数
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.UpdatedAt = time.Now()
}

// ContentLength 正文长度（按字符计），高亮偏移以此为上界
func (c *Chapter) ContentLength() int {
	return utf8.RuneCountInString(c.Content)
}

// ErrorMessage 返回失败原因，未失败时为空串
func (c *Chapter) ErrorMessage() string {
	if c.Error == nil {
		return ""
	}
	return *c.Error
}

// CountWords 按空白切分并统计非空词
func CountWords(text string) int {
	return len(strings.Fields(text))
}
