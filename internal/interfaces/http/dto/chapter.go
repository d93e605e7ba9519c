package dto

import (
	"time"

	"manuscript-editor-api/internal/application/quota"
	"manuscript-editor-api/internal/domain/entity"
)

// UploadChapterResponse 上传结果
type UploadChapterResponse struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	WordCount int    `json:"wordCount"`
	Status    string `json:"status"`
}

func ToUploadChapterResponse(c *entity.Chapter) *UploadChapterResponse {
	return &UploadChapterResponse{
		ID:        c.ID,
		Number:    c.Number,
		Title:     c.Title,
		WordCount: c.WordCount,
		Status:    string(c.Status),
	}
}

// FeedbackResponse 一条发展性反馈
type FeedbackResponse struct {
	ID               string                   `json:"id"`
	Type             string                   `json:"type"`
	OverallScore     float64                  `json:"overallScore"`
	Strengths        []string                 `json:"strengths"`
	Weaknesses       []string                 `json:"weaknesses"`
	Feedback         string                   `json:"feedback"`
	InlineHighlights []entity.InlineHighlight `json:"inlineHighlights"`
	ContinuityNotes  []string                 `json:"continuityNotes,omitempty"`
	Degraded         bool                     `json:"degraded"`
	Model            string                   `json:"model,omitempty"`
	TokensUsed       int                      `json:"tokensUsed"`
	CostUSD          float64                  `json:"costUsd"`
	CreatedAt        time.Time                `json:"createdAt"`
}

func ToFeedbackResponse(f *entity.EditingFeedback) *FeedbackResponse {
	if f == nil {
		return nil
	}
	highlights := f.InlineHighlights
	if highlights == nil {
		highlights = []entity.InlineHighlight{}
	}
	return &FeedbackResponse{
		ID:               f.ID,
		Type:             string(f.Type),
		OverallScore:     f.OverallScore,
		Strengths:        nonNil(f.Strengths),
		Weaknesses:       nonNil(f.Weaknesses),
		Feedback:         f.Feedback,
		InlineHighlights: highlights,
		ContinuityNotes:  f.ContinuityNotes,
		Degraded:         f.Degraded,
		Model:            f.Model,
		TokensUsed:       f.TokensUsed,
		CostUSD:          f.CostUSD,
		CreatedAt:        f.CreatedAt,
	}
}

// SummaryResponse 章节摘要
type SummaryResponse struct {
	Summary   string                 `json:"summary"`
	KeyPoints []string               `json:"keyPoints"`
	Entities  entity.SummaryEntities `json:"entities"`
	Degraded  bool                   `json:"degraded"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func ToSummaryResponse(s *entity.ChapterSummary) *SummaryResponse {
	if s == nil {
		return nil
	}
	data := s.Data()
	return &SummaryResponse{
		Summary:   data.Summary,
		KeyPoints: data.KeyPoints,
		Entities:  data.Entities,
		Degraded:  s.Degraded,
		UpdatedAt: s.UpdatedAt,
	}
}

// ChapterResponse 章节，列表中只带最新反馈，详情带全部反馈
type ChapterResponse struct {
	ID                string              `json:"id"`
	BookID            string              `json:"bookId"`
	Number            int                 `json:"number"`
	Title             string              `json:"title"`
	Content           string              `json:"content,omitempty"`
	WordCount         int                 `json:"wordCount"`
	Status            string              `json:"status"`
	Error             *string             `json:"error,omitempty"`
	AnalysisStartedAt *time.Time          `json:"analysisStartedAt,omitempty"`
	AnalyzedAt        *time.Time          `json:"analyzedAt,omitempty"`
	Feedback          []*FeedbackResponse `json:"feedback"`
	Summary           *SummaryResponse    `json:"summary,omitempty"`
	Book              *BookResponse       `json:"book,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ChapterListResponse 书籍章节列表
type ChapterListResponse struct {
	Chapters []*ChapterResponse `json:"chapters"`
}

func ToChapterResponse(c *entity.Chapter) *ChapterResponse {
	if c == nil {
		return nil
	}
	resp := &ChapterResponse{
		ID:                c.ID,
		BookID:            c.BookID,
		Number:            c.Number,
		Title:             c.Title,
		Content:           c.Content,
		WordCount:         c.WordCount,
		Status:            string(c.Status),
		Error:             c.Error,
		AnalysisStartedAt: c.AnalysisStartedAt,
		AnalyzedAt:        c.AnalyzedAt,
		Feedback:          make([]*FeedbackResponse, 0, len(c.Feedback)),
		Summary:           ToSummaryResponse(c.Summary),
		Book:              ToBookResponse(c.Book),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	for _, f := range c.Feedback {
		resp.Feedback = append(resp.Feedback, ToFeedbackResponse(f))
	}
	return resp
}

func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	out := &ChapterListResponse{Chapters: make([]*ChapterResponse, 0, len(chapters))}
	for _, c := range chapters {
		out.Chapters = append(out.Chapters, ToChapterResponse(c))
	}
	return out
}

// AnalyzeChapterResponse 重新分析已受理
type AnalyzeChapterResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UsageEventResponse 一条 LLM 用量流水
type UsageEventResponse struct {
	ID           string    `json:"id"`
	Workflow     string    `json:"workflow"`
	Tier         string    `json:"tier"`
	Provider     string    `json:"provider,omitempty"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	TotalTokens  int       `json:"totalTokens"`
	CostUSD      float64   `json:"costUsd"`
	DurationMs   int       `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChapterUsageResponse 章节用量汇总
type ChapterUsageResponse struct {
	ChapterID    string                `json:"chapterId"`
	Events       []*UsageEventResponse `json:"events"`
	InputTokens  int                   `json:"inputTokens"`
	OutputTokens int                   `json:"outputTokens"`
	TotalTokens  int                   `json:"totalTokens"`
	CostUSD      float64               `json:"costUsd"`
}

func ToChapterUsageResponse(u *quota.ChapterUsage) *ChapterUsageResponse {
	resp := &ChapterUsageResponse{
		ChapterID:    u.ChapterID,
		Events:       make([]*UsageEventResponse, 0, len(u.Events)),
		InputTokens:  u.Total.InputTokens,
		OutputTokens: u.Total.OutputTokens,
		TotalTokens:  u.Total.TotalTokens,
		CostUSD:      u.Total.CostUSD,
	}
	for _, e := range u.Events {
		resp.Events = append(resp.Events, &UsageEventResponse{
			ID:           e.ID,
			Workflow:     e.Workflow,
			Tier:         e.Tier,
			Provider:     e.Provider,
			Model:        e.Model,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			TotalTokens:  e.InputTokens + e.OutputTokens,
			CostUSD:      e.CostUSD,
			DurationMs:   e.DurationMs,
			CreatedAt:    e.CreatedAt,
		})
	}
	return resp
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
