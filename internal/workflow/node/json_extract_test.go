package node

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBalancedObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"surrounded", "Here you go: {\"a\":{\"b\":2}} hope it helps {\"c\":3}", `{"a":{"b":2}}`, true},
		{"brace in string", `x {"feedback":"use } and { freely","n":1} y`, `{"feedback":"use } and { freely","n":1}`, true},
		{"escaped quote", `{"s":"say \"}\" now"}`, `{"s":"say \"}\" now"}`, true},
		{"truncated", `{"overallScore": 8, "strengths": [`, "", false},
		{"none", "I think this chapter is good.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BalancedObject(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("BalancedObject() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestJSONCandidatesPrefersFence(t *testing.T) {
	in := "Intro {\"draft\":true}\n```json\n{\"final\":true}\n```\ntrailing"
	want := []string{`{"final":true}`, `{"draft":true}`}
	if diff := cmp.Diff(want, JSONCandidates(in)); diff != "" {
		t.Fatalf("JSONCandidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONCandidatesBareFenceAndDedup(t *testing.T) {
	in := "```\n{\"a\":1}\n```"
	want := []string{`{"a":1}`}
	if diff := cmp.Diff(want, JSONCandidates(in)); diff != "" {
		t.Fatalf("JSONCandidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONCandidatesListsLaterObjects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "brace in prose",
			in:   `I used {curly} text then {"a":1} done`,
			want: []string{`{curly}`, `{"a":1}`},
		},
		{
			name: "fenced object repeated in text",
			in:   "```json
{"note":1}
```
{"a":{"b":2}}",
			want: []string{`{"note":1}`, `{"a":{"b":2}}`},
		},
		{
			name: "unclosed brace before payload",
			in:   `see { above, then {"a":1}`,
			want: []string{`{"a":1}`},
		},
		{
			name: "nested objects are not split",
			in:   `{"a":{"b":{"c":3}}} tail {"d":4}`,
			want: []string{`{"a":{"b":{"c":3}}}`, `{"d":4}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, JSONCandidates(tt.in)); diff != "" {
				t.Fatalf("JSONCandidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractJSONObjectKeepsFirstSpan(t *testing.T) {
	got, ok := ExtractJSONObject(`intro {"first":1} and {"second":2}`)
	if !ok || got != `{"first":1}` {
		t.Fatalf("ExtractJSONObject() = (%q, %v), want first span", got, ok)
	}
}

func TestExtractJSONObjectEmpty(t *testing.T) {
	if _, ok := ExtractJSONObject(""); ok {
		t.Fatalf("ExtractJSONObject(\"\") ok = true, want false")
	}
}
