package redis

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		scope, client, want string
	}{
		{"api", "10.0.0.1", "ratelimit:api:10.0.0.1"},
		{"upload", "::1", "ratelimit:upload:::1"},
	}
	for _, tt := range tests {
		if got := RateLimitKey(tt.scope, tt.client); got != tt.want {
			t.Errorf("RateLimitKey(%q, %q) = %q, want %q", tt.scope, tt.client, got, tt.want)
		}
	}
}

func TestDecisionFrom(t *testing.T) {
	tests := []struct {
		name string
		vals []int64
		want Decision
	}{
		{"allowed", []int64{1, 3, 0}, Decision{Allowed: true, Limit: 5, Remaining: 2}},
		{"denied", []int64{0, 5, 1500}, Decision{Limit: 5, RetryAfter: 1500 * time.Millisecond}},
		{"over limit after shrink", []int64{0, 9, 10}, Decision{Limit: 5, RetryAfter: 10 * time.Millisecond}},
		{"short reply", nil, Decision{Allowed: true, Limit: 5, Remaining: 5}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, decisionFrom(tt.vals, 5)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestBookContextKey(t *testing.T) {
	if got := BookContextKey("b-1"); got != "ctx:book:b-1" {
		t.Fatalf("BookContextKey() = %q", got)
	}
}
