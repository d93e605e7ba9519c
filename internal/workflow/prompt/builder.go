package prompt

import (
	"context"
	"fmt"
	"strings"

	"manuscript-editor-api/internal/domain/entity"
)

// DefaultSummaryGenre 摘要提示词未指定体裁时的称呼
const DefaultSummaryGenre = "fiction"

// summaryLine 前文摘要条目，Number 从 1 开始
type summaryLine struct {
	Number int
	Text   string
}

// Builder 组装分析提示词，无 I/O、结果确定
type Builder struct {
	registry *Registry
}

func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

var defaultBuilder = NewBuilder(nil)

// BuildDevelopmentalPrompt 使用默认 Builder 组装发展性编辑提示词
func BuildDevelopmentalPrompt(chapterText string, cc *entity.ChapterContext) (string, error) {
	return defaultBuilder.BuildDevelopmentalPrompt(context.Background(), chapterText, cc)
}

// BuildSummaryPrompt 使用默认 Builder 组装摘要提示词
func BuildSummaryPrompt(chapterText string, chapterNumber int, genre string) (string, error) {
	return defaultBuilder.BuildSummaryPrompt(context.Background(), chapterText, chapterNumber, genre)
}

// BuildDevelopmentalPrompt 组装发展性编辑提示词
//
// 缺省的上下文字段对应的段落整体省略；没有前文摘要时，
// 连续性评估段落与 continuityNotes 输出字段都不会出现。
func (b *Builder) BuildDevelopmentalPrompt(ctx context.Context, chapterText string, cc *entity.ChapterContext) (string, error) {
	if strings.TrimSpace(chapterText) == "" {
		return "", fmt.Errorf("chapter text is empty")
	}
	if cc == nil {
		cc = &entity.ChapterContext{}
	}

	lines := make([]summaryLine, 0, len(cc.PreviousSummaries))
	for i, s := range cc.PreviousSummaries {
		lines = append(lines, summaryLine{Number: i + 1, Text: s})
	}

	vars := map[string]any{
		"genre":              strings.TrimSpace(cc.Genre),
		"series":             positive(cc.BookNumber) && positive(cc.TotalBooks),
		"book_number":        deref(cc.BookNumber),
		"total_books":        deref(cc.TotalBooks),
		"continuity":         len(lines) > 0,
		"previous_summaries": lines,
		"chapter_number":     max(deref(cc.ChapterNumber), 0),
		"chapter_text":       chapterText,
	}
	return b.render(ctx, PromptDevelopmentalFeedbackV1, vars)
}

// BuildSummaryPrompt 组装章节摘要提示词
func (b *Builder) BuildSummaryPrompt(ctx context.Context, chapterText string, chapterNumber int, genre string) (string, error) {
	if strings.TrimSpace(chapterText) == "" {
		return "", fmt.Errorf("chapter text is empty")
	}
	genre = strings.TrimSpace(genre)
	if genre == "" {
		genre = DefaultSummaryGenre
	}

	vars := map[string]any{
		"chapter_number": chapterNumber,
		"genre":          genre,
		"chapter_text":   chapterText,
	}
	return b.render(ctx, PromptChapterSummaryV1, vars)
}

func (b *Builder) render(ctx context.Context, id PromptID, vars map[string]any) (string, error) {
	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", id, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt %s rendered no message", id)
	}
	return msgs[0].Content, nil
}

func positive(p *int) bool {
	return p != nil && *p > 0
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
