package entity

// HighlightType 行内批注类别
type HighlightType string

const (
	HighlightPacing      HighlightType = "pacing"
	HighlightCharacter   HighlightType = "character"
	HighlightPlot        HighlightType = "plot"
	HighlightStructure   HighlightType = "structure"
	HighlightStyle       HighlightType = "style"
	HighlightDialogue    HighlightType = "dialogue"
	HighlightDescription HighlightType = "description"
)

// Valid 是否为已知类别
func (t HighlightType) Valid() bool {
	switch t {
	case HighlightPacing, HighlightCharacter, HighlightPlot, HighlightStructure,
		HighlightStyle, HighlightDialogue, HighlightDescription:
		return true
	}
	return false
}

// HighlightSeverity 批注严重程度，可为空
type HighlightSeverity string

const (
	SeverityMinor    HighlightSeverity = "minor"
	SeverityModerate HighlightSeverity = "moderate"
	SeverityMajor    HighlightSeverity = "major"
)

func (s HighlightSeverity) Valid() bool {
	return s == SeverityMinor || s == SeverityModerate || s == SeverityMajor
}

// InlineHighlight 锚定在章节正文 [Start, End) 字符区间上的批注
type InlineHighlight struct {
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Type     HighlightType     `json:"type"`
	Comment  string            `json:"comment"`
	Severity HighlightSeverity `json:"severity,omitempty"`
}

// InBounds 检查 0 <= Start < End <= length
func (h InlineHighlight) InBounds(length int) bool {
	return h.Start >= 0 && h.Start < h.End && h.End <= length
}

// DevelopmentalFeedback 一次发展性编辑分析的结构化结果
type DevelopmentalFeedback struct {
	OverallScore     float64           `json:"overallScore"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	Feedback         string            `json:"feedback"`
	InlineHighlights []InlineHighlight `json:"inlineHighlights"`
	// ContinuityNotes 与前文矛盾或呼应之处，仅在提供前文摘要时要求输出
	ContinuityNotes []string `json:"continuityNotes"`
}

// SummaryEntities 摘要中抽取的实体，不去重
type SummaryEntities struct {
	Characters []string `json:"characters"`
	Places     []string `json:"places"`
	Events     []string `json:"events"`
}

// ChapterSummaryData 章节摘要生成结果
type ChapterSummaryData struct {
	Summary   string          `json:"summary"`
	KeyPoints []string        `json:"keyPoints"`
	Entities  SummaryEntities `json:"entities"`
}

// ChapterContext 构造反馈提示词时的叙事上下文快照
type ChapterContext struct {
	Genre         string
	BookNumber    *int
	TotalBooks    *int
	ChapterNumber *int
	// PreviousSummaries 之前已完成章节的摘要，按章节号升序
	PreviousSummaries []string
}

// HasContinuity 是否携带前文摘要
func (c *ChapterContext) HasContinuity() bool {
	return c != nil && len(c.PreviousSummaries) > 0
}

// ApiUsage 单次 LLM 调用的用量与费用
type ApiUsage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens"`
	CostUSD      float64 `json:"costUsd"`
}

// Add 累加另一笔用量
func (u ApiUsage) Add(o ApiUsage) ApiUsage {
	return ApiUsage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}
