package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/pkg/logger"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}
	tests := []struct {
		deliveries int64
		want       time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{40, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.deliveries); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.deliveries, got, tt.want)
		}
	}
}

// Redis 返回的字段值均为字符串，这里按同样形态回读
func asStreamValues(f map[string]any) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v.(string)
	}
	return out
}

func TestEntryFieldsParseBack(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-9")
	e := newEntry(ctx, analysis.Job{ChapterID: "c1", BookID: "b1", ProjectID: "p1", Attempt: 2})
	if e.JobID == "" || e.RequestID != "req-9" {
		t.Fatalf("newEntry() = %+v", e)
	}

	got, err := parseEntry(asStreamValues(e.fields()))
	if err != nil {
		t.Fatalf("parseEntry() error = %v", err)
	}
	if diff := cmp.Diff(e, got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryFieldsOmitEmptyOptional(t *testing.T) {
	e := newEntry(context.Background(), analysis.Job{ChapterID: "c1", Attempt: 1})
	f := e.fields()
	for _, k := range []string{fieldBookID, fieldProjectID, fieldRequestID, fieldTraceID} {
		if _, ok := f[k]; ok {
			t.Errorf("field %q should be omitted", k)
		}
	}
}

func TestParseEntryRejectsMalformed(t *testing.T) {
	tests := map[string]map[string]any{
		"missing chapter": {fieldJobID: "j1", fieldAttempt: "1"},
		"bad attempt":     {fieldChapterID: "c1", fieldAttempt: "two"},
	}
	for name, values := range tests {
		if _, err := parseEntry(values); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestConsumerDefaults(t *testing.T) {
	cfg := ConsumerConfig{AdoptIdle: time.Second, Backoff: Backoff{Initial: time.Second, Max: 10 * time.Minute, Multiplier: 2}}.withDefaults()
	if cfg.Stream != DefaultStream || cfg.MaxDeliveries != 3 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.AdoptIdle != 20*time.Minute {
		t.Fatalf("AdoptIdle = %v, want twice the max backoff", cfg.AdoptIdle)
	}
}

func TestDeadLetterStream(t *testing.T) {
	if got := DeadLetterStream(DefaultStream); got != "dlq:stream:chapter:analysis" {
		t.Fatalf("DeadLetterStream() = %q", got)
	}
}
