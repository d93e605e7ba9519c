package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/pkg/metrics"
)

func TestChatModelCallbacksCountTokens(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "cb_test_feedback", "cb-provider")

	prompt := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb_test_feedback", "cb-provider", "m-1", "prompt"))
	calls := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_feedback", "cb-provider", "m-1", "success"))

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m-1"}})
	if st := stateFrom(ctx); st.model != "m-1" || st.start.IsZero() {
		t.Fatalf("call state not recorded on start: %+v", st)
	}
	h.OnEnd(ctx, nil, &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150},
	})

	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb_test_feedback", "cb-provider", "m-1", "prompt")) - prompt; got != 120 {
		t.Errorf("prompt tokens delta = %v, want 120", got)
	}
	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_feedback", "cb-provider", "m-1", "success")) - calls; got != 1 {
		t.Errorf("success calls delta = %v, want 1", got)
	}
}

func TestChatModelCallbacksCountErrors(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "cb_test_summary", "cb-provider")

	before := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_summary", "cb-provider", "m-2", "error"))

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m-2"}})
	h.OnError(ctx, nil, errors.New("upstream 529"))

	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_summary", "cb-provider", "m-2", "error")) - before; got != 1 {
		t.Errorf("error calls delta = %v, want 1", got)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	if callbackHandler() == nil {
		t.Fatal("callback handler is nil")
	}
}

func TestOnEndWithoutStartStillCounts(t *testing.T) {
	ctx := service.WithWorkflowProvider(context.Background(), "cb_test_nostart", "cb-provider")
	before := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_nostart", "cb-provider", "m-3", "success"))

	onEnd(ctx, nil, &model.CallbackOutput{Config: &model.Config{Model: "m-3"}})

	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_nostart", "cb-provider", "m-3", "success")) - before; got != 1 {
		t.Errorf("success calls delta = %v, want 1", got)
	}
}
