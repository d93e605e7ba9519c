package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/internal/infrastructure/llm"
	"manuscript-editor-api/internal/workflow/parser"
	"manuscript-editor-api/internal/workflow/prompt"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

var tracer = otel.Tracer("analysis")

const (
	FeedbackTemperature = 0.7
	SummaryTemperature  = 0.3

	DefaultFeedbackMaxTokens = 4000
	SummaryMaxTokens         = 2000

	DefaultFeedbackModel = "claude-sonnet-4-20250514"
	DefaultSummaryModel  = "claude-haiku-4-20250122"
)

// statusWriteTimeout 运行超时后仍需完成的状态写入上限
const statusWriteTimeout = 10 * time.Second

// Config 编排参数
type Config struct {
	FeedbackModel     string
	SummaryModel      string
	FeedbackMaxTokens int
	Provider          string
	// LeaseTTL ANALYZING 租约有效期，过期后可被重新领取
	LeaseTTL time.Duration
	// RunTimeout 单次分析的总时限
	RunTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FeedbackModel == "" {
		c.FeedbackModel = DefaultFeedbackModel
	}
	if c.SummaryModel == "" {
		c.SummaryModel = DefaultSummaryModel
	}
	if c.FeedbackMaxTokens <= 0 {
		c.FeedbackMaxTokens = DefaultFeedbackMaxTokens
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 15 * time.Minute
	}
	return c
}

// Orchestrator 章节分析编排
type Orchestrator struct {
	chapters  repository.ChapterRepository
	feedback  repository.FeedbackRepository
	summaries repository.SummaryRepository
	loader    *ContextLoader
	completer llm.Completer
	prompts   *prompt.Builder
	usage     service.LLMUsageRecorder
	cfg       Config
	now       func() time.Time
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	chapters repository.ChapterRepository,
	feedback repository.FeedbackRepository,
	summaries repository.SummaryRepository,
	loader *ContextLoader,
	completer llm.Completer,
	prompts *prompt.Builder,
	usage service.LLMUsageRecorder,
	cfg Config,
) *Orchestrator {
	if prompts == nil {
		prompts = prompt.NewBuilder(nil)
	}
	return &Orchestrator{
		chapters:  chapters,
		feedback:  feedback,
		summaries: summaries,
		loader:    loader,
		completer: completer,
		prompts:   prompts,
		usage:     usage,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// IsSkip 领取租约失败但无需重试的情况：章节已删除、另一次分析进行中、状态不允许
func IsSkip(err error) bool {
	return errors.Is(err, apperrors.ErrChapterNotFound) ||
		errors.Is(err, apperrors.ErrAnalysisInProgress) ||
		errors.Is(err, entity.ErrInvalidTransition)
}

// Analyze 执行一次章节分析
//
// 分析失败会记录在章节上并返回 nil；只有领取租约时的基础设施错误才返回，
// 由队列决定是否重投。
func (o *Orchestrator) Analyze(ctx context.Context, chapterID string) error {
	ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapterID)
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	span.SetAttributes(attribute.String("chapter_id", chapterID))
	defer span.End()

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	start := entity.LeaseStamp(o.now())
	if err := o.chapters.BeginAnalysis(ctx, chapterID, start, start.Add(-o.cfg.LeaseTTL)); err != nil {
		if IsSkip(err) {
			logger.Info(ctx, "analysis skipped", "reason", err.Error())
			metrics.AnalysisRunsTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("failed to begin analysis: %w", err)
	}
	logger.Info(ctx, "analysis started")

	outcome := "completed"
	if runErr := o.run(ctx, chapterID); runErr != nil {
		outcome = "failed"
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		o.markFailed(ctx, chapterID, start, runErr)
	} else {
		o.markCompleted(ctx, chapterID, start)
	}

	elapsed := o.now().Sub(start)
	metrics.AnalysisRunsTotal.WithLabelValues(outcome).Inc()
	metrics.AnalysisDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	logger.Info(ctx, "analysis finished", "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	return nil
}

func (o *Orchestrator) run(ctx context.Context, chapterID string) error {
	chapter, err := o.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return err
	}
	if chapter == nil {
		return apperrors.ErrChapterNotFound
	}

	cc, projectID, err := o.loader.Load(ctx, chapter)
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx, logger.BookIDKey, chapter.BookID)
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)

	if err := o.developmentalFeedback(ctx, chapter, cc, projectID); err != nil {
		return err
	}
	return o.chapterSummary(ctx, chapter, cc, projectID)
}

func (o *Orchestrator) developmentalFeedback(ctx context.Context, chapter *entity.Chapter, cc *entity.ChapterContext, projectID string) error {
	ctx, span := tracer.Start(ctx, "analysis.DevelopmentalFeedback")
	defer span.End()

	p, err := o.prompts.BuildDevelopmentalPrompt(ctx, chapter.Content, cc)
	if err != nil {
		return err
	}

	start := o.now()
	resp, err := o.completer.Complete(ctx, llm.Request{
		Prompt:      p,
		MaxTokens:   o.cfg.FeedbackMaxTokens,
		Temperature: FeedbackTemperature,
		Model:       o.cfg.FeedbackModel,
		Workflow:    service.WorkflowDevelopmentalFeedback,
	})
	if err != nil {
		return err
	}
	duration := o.now().Sub(start)

	result := parser.DecodeFeedback(resp.Text)
	if result.Degraded {
		metrics.ParseDegradedTotal.WithLabelValues("feedback").Inc()
		logger.Warn(ctx, "feedback response could not be parsed, using fallback", "reason", result.Reason)
	}
	fb, dropped := SanitizeHighlights(result.Feedback, chapter.ContentLength())
	if dropped > 0 {
		metrics.HighlightsDroppedTotal.Add(float64(dropped))
		logger.Warn(ctx, "dropped invalid inline highlights", "count", dropped)
	}

	usage := service.CalculateUsage(service.RawUsage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}, service.TierStandard)
	model := modelName(resp, o.cfg.FeedbackModel)

	record := entity.NewDevelopmentalFeedback(chapter.ID, fb, usage, model, result.Degraded)
	if err := o.feedback.Create(ctx, record); err != nil {
		return err
	}
	o.recordUsage(ctx, projectID, chapter.ID, service.WorkflowDevelopmentalFeedback, service.TierStandard, model, usage, duration)
	return nil
}

func (o *Orchestrator) chapterSummary(ctx context.Context, chapter *entity.Chapter, cc *entity.ChapterContext, projectID string) error {
	ctx, span := tracer.Start(ctx, "analysis.ChapterSummary")
	defer span.End()

	p, err := o.prompts.BuildSummaryPrompt(ctx, chapter.Content, chapter.Number, cc.Genre)
	if err != nil {
		return err
	}

	start := o.now()
	resp, err := o.completer.Complete(ctx, llm.Request{
		Prompt:      p,
		MaxTokens:   SummaryMaxTokens,
		Temperature: SummaryTemperature,
		Model:       o.cfg.SummaryModel,
		Workflow:    service.WorkflowChapterSummary,
	})
	if err != nil {
		return err
	}
	duration := o.now().Sub(start)

	result := parser.DecodeSummary(resp.Text)
	if result.Degraded {
		metrics.ParseDegradedTotal.WithLabelValues("summary").Inc()
		logger.Warn(ctx, "summary response could not be parsed, using fallback", "reason", result.Reason)
	}

	usage := service.CalculateUsage(service.RawUsage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}, service.TierCheap)
	model := modelName(resp, o.cfg.SummaryModel)

	if err := o.summaries.Upsert(ctx, entity.NewChapterSummary(chapter.ID, result.Summary, result.Degraded)); err != nil {
		return err
	}
	o.recordUsage(ctx, projectID, chapter.ID, service.WorkflowChapterSummary, service.TierCheap, model, usage, duration)
	return nil
}

func (o *Orchestrator) recordUsage(ctx context.Context, projectID, chapterID, workflow string, tier service.ModelTier, model string, usage entity.ApiUsage, d time.Duration) {
	if o.usage == nil {
		return
	}
	err := o.usage.Record(ctx, service.LLMUsageInput{
		ProjectID:  projectID,
		ChapterID:  chapterID,
		Workflow:   workflow,
		Tier:       tier,
		Provider:   o.cfg.Provider,
		Model:      model,
		Usage:      usage,
		DurationMs: int(d.Milliseconds()),
	})
	if err != nil {
		logger.Warn(ctx, "failed to record llm usage", "workflow", workflow, "error", err.Error())
	}
}

// markCompleted 章节在运行中被删除或租约被接管时不会写入
func (o *Orchestrator) markCompleted(ctx context.Context, chapterID string, lease time.Time) {
	ctx, cancel := statusContext(ctx)
	defer cancel()

	if err := o.chapters.CompleteAnalysis(ctx, chapterID, lease, o.now()); err != nil {
		if IsSkip(err) {
			logger.Warn(ctx, "chapter changed during analysis, completion not recorded", "reason", err.Error())
			return
		}
		logger.Error(ctx, "failed to mark chapter completed", err)
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, chapterID string, lease time.Time, cause error) {
	ctx, cancel := statusContext(ctx)
	defer cancel()

	logger.Error(ctx, "analysis failed", cause)
	if err := o.chapters.FailAnalysis(ctx, chapterID, lease, FailureMessage(cause)); err != nil {
		if IsSkip(err) {
			logger.Warn(ctx, "chapter changed during analysis, failure not recorded", "reason", err.Error())
			return
		}
		logger.Error(ctx, "failed to mark chapter failed", err)
	}
}

// statusContext 运行超时或取消后仍给状态写入留出时间
func statusContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

// FailureMessage 持久化到章节上的错误信息
func FailureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "analysis timed out"
	}
	return err.Error()
}

// SanitizeHighlights 丢弃越界或类型未知的高亮，清除未知的严重程度
func SanitizeHighlights(fb entity.DevelopmentalFeedback, length int) (entity.DevelopmentalFeedback, int) {
	kept := make([]entity.InlineHighlight, 0, len(fb.InlineHighlights))
	for _, h := range fb.InlineHighlights {
		if !h.InBounds(length) || !h.Type.Valid() {
			continue
		}
		if h.Severity != "" && !h.Severity.Valid() {
			h.Severity = ""
		}
		kept = append(kept, h)
	}
	dropped := len(fb.InlineHighlights) - len(kept)
	fb.InlineHighlights = kept
	return fb, dropped
}

func modelName(resp *llm.Response, fallback string) string {
	if resp != nil && resp.Model != "" {
		return resp.Model
	}
	return fallback
}
