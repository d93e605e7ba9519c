// Package eino 注册 Eino 全局回调，为每次模型调用记录指标与链路
package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/pkg/metrics"
)

var tracer = otel.Tracer("eino")

// callState 一次模型调用的度量上下文，OnStart 写入，OnEnd/OnError 收尾
type callState struct {
	start    time.Time
	workflow string
	provider string
	model    string
	span     trace.Span
}

type callStateKey struct{}

func stateFrom(ctx context.Context) *callState {
	if st, ok := ctx.Value(callStateKey{}).(*callState); ok {
		return st
	}
	// 没经过 OnStart 的调用仍计数，只是没有耗时与 span
	return &callState{
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
		span:     trace.SpanFromContext(ctx),
	}
}

// labels workflow, provider, model
func (s *callState) labels() []string {
	return []string{s.workflow, s.provider, s.model}
}

// finish 记录调用结果，outcome 为 success 或 error
func (s *callState) finish(outcome string) {
	metrics.LLMCallTotal.WithLabelValues(append(s.labels(), outcome)...).Inc()
	if !s.start.IsZero() {
		metrics.LLMCallDuration.WithLabelValues(s.labels()...).Observe(time.Since(s.start).Seconds())
	}
	s.span.End()
}

func onStart(ctx context.Context, info *einocb.RunInfo, in *model.CallbackInput) context.Context {
	st := &callState{
		start:    time.Now(),
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
	}
	if in != nil && in.Config != nil {
		st.model = in.Config.Model
	}

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", st.workflow),
		attribute.String("llm.provider", st.provider),
		attribute.String("llm.model", st.model),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.node_name", info.Name))
	}
	ctx, st.span = tracer.Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return context.WithValue(ctx, callStateKey{}, st)
}

func onEnd(ctx context.Context, _ *einocb.RunInfo, out *model.CallbackOutput) context.Context {
	st := stateFrom(ctx)
	if out != nil && out.Config != nil && out.Config.Model != "" {
		// 供应商可能返回带日期后缀的实际模型名
		st.model = out.Config.Model
	}
	if out != nil && out.TokenUsage != nil {
		u := out.TokenUsage
		metrics.LLMTokensUsed.WithLabelValues(append(st.labels(), "prompt")...).Add(float64(u.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(append(st.labels(), "completion")...).Add(float64(u.CompletionTokens))
		st.span.SetAttributes(
			attribute.Int("llm.prompt_tokens", u.PromptTokens),
			attribute.Int("llm.completion_tokens", u.CompletionTokens),
		)
	}
	st.finish("success")
	return ctx
}

func onError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	st := stateFrom(ctx)
	st.span.RecordError(err)
	st.span.SetStatus(codes.Error, err.Error())
	st.finish("error")
	return ctx
}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onStart,
		OnEnd:   onEnd,
		OnError: onError,
	}
}
