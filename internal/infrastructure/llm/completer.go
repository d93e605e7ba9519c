package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/felixgeelhaar/fortify/timeout"

	"manuscript-editor-api/internal/domain/service"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// DefaultCallTimeout 提供商未配置超时时单次调用的上限
const DefaultCallTimeout = 5 * time.Minute

// Request 单次补全请求
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Model       string
	// Workflow 用于指标与链路标签
	Workflow string
}

// Response 补全结果，token 数取自提供商返回的 usage
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Completer 单轮文本补全
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ChatModelSource 按提供商获取 ChatModel
type ChatModelSource interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// EinoCompleter 基于 Eino ChatModel 的 Completer 实现
type EinoCompleter struct {
	models   ChatModelSource
	provider string
	timeout  time.Duration
}

// NewEinoCompleter 使用默认提供商创建 Completer
func NewEinoCompleter(factory *EinoFactory) *EinoCompleter {
	provider := factory.ProviderName("")
	callTimeout := DefaultCallTimeout
	if p, ok := factory.Provider(provider); ok && p.Timeout > 0 {
		callTimeout = p.Timeout
	}
	return NewCompleter(factory, provider, callTimeout)
}

// NewCompleter 创建 Completer，callTimeout <= 0 时使用 DefaultCallTimeout
func NewCompleter(models ChatModelSource, provider string, callTimeout time.Duration) *EinoCompleter {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &EinoCompleter{models: models, provider: provider, timeout: callTimeout}
}

// Complete 发送单条用户消息并返回文本与 token 用量
//
// 任何失败都包装为 CodeLLMCallFailed，调用方据此把章节标记为 FAILED。
func (c *EinoCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("prompt is empty")
	}

	chatModel, err := c.models.Get(ctx, c.provider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm provider unavailable")
	}

	ctx = service.WithWorkflowProvider(ctx, req.Workflow, c.provider)

	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}

	deadline := timeout.New[*schema.Message](timeout.Config{DefaultTimeout: c.timeout})
	start := time.Now()
	msg, err := deadline.Execute(ctx, c.timeout, func(ctx context.Context) (*schema.Message, error) {
		return chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(req.Prompt)}, opts...)
	})
	if err != nil {
		logger.Warn(ctx, "llm call failed",
			"workflow", req.Workflow,
			"model", req.Model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call failed")
	}
	if msg == nil {
		return nil, apperrors.ErrLLMCallFailed.WithDetail("empty response")
	}

	resp := &Response{Text: msg.Content, Model: req.Model}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		resp.InputTokens = msg.ResponseMeta.Usage.PromptTokens
		resp.OutputTokens = msg.ResponseMeta.Usage.CompletionTokens
	}

	logger.Debug(ctx, "llm call completed",
		"workflow", req.Workflow,
		"model", req.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
