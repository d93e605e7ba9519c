package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    ChapterStatus
		event   ChapterEvent
		expired bool
		want    ChapterStatus
		wantErr bool
	}{
		{"upload", ChapterStatusPending, EventUpload, false, ChapterStatusProcessing, false},
		{"begin", ChapterStatusProcessing, EventBegin, false, ChapterStatusAnalyzing, false},
		{"complete", ChapterStatusAnalyzing, EventComplete, false, ChapterStatusCompleted, false},
		{"fail while analyzing", ChapterStatusAnalyzing, EventFail, false, ChapterStatusFailed, false},
		{"fail while queued", ChapterStatusProcessing, EventFail, false, ChapterStatusFailed, false},
		{"resubmit completed", ChapterStatusCompleted, EventResubmit, false, ChapterStatusProcessing, false},
		{"resubmit failed", ChapterStatusFailed, EventResubmit, false, ChapterStatusProcessing, false},
		{"expire live lease", ChapterStatusAnalyzing, EventExpire, false, "", true},
		{"expire stale lease", ChapterStatusAnalyzing, EventExpire, true, ChapterStatusProcessing, false},
		{"begin twice", ChapterStatusAnalyzing, EventBegin, false, "", true},
		{"complete from queued", ChapterStatusProcessing, EventComplete, false, "", true},
		{"begin after completion", ChapterStatusCompleted, EventBegin, false, "", true},
		{"unknown status", ChapterStatus("ARCHIVED"), EventResubmit, false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.event, tt.expired)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("NextStatus() error = %v, want ErrInvalidTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextStatus() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("NextStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSourceStatuses(t *testing.T) {
	tests := []struct {
		event ChapterEvent
		want  []ChapterStatus
	}{
		{EventBegin, []ChapterStatus{ChapterStatusProcessing}},
		{EventFail, []ChapterStatus{ChapterStatusProcessing, ChapterStatusAnalyzing}},
		{EventResubmit, []ChapterStatus{ChapterStatusPending, ChapterStatusCompleted, ChapterStatusFailed}},
		{EventExpire, nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SourceStatuses(tt.event)); diff != "" {
			t.Errorf("SourceStatuses(%s) mismatch (-want +got):\n%s", tt.event, diff)
		}
	}
}

func TestNewChapterDefaults(t *testing.T) {
	c := NewChapter("book-1", 3, "  ", "  The storm\tbroke over\n\nthe keep.  ")
	if c.Title != "Chapter 3" {
		t.Errorf("Title = %q, want Chapter 3", c.Title)
	}
	if c.WordCount != 6 {
		t.Errorf("WordCount = %d, want 6", c.WordCount)
	}
	if c.Status != ChapterStatusPending {
		t.Errorf("Status = %s, want PENDING", c.Status)
	}
	if c.ID == "" {
		t.Errorf("ID is empty")
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", " \t\n\r\n  ", 0},
		{"single word", "storm", 1},
		{"mixed whitespace", "one\ttwo\nthree\r\nfour  five\u00a0six", 6},
		{"punctuation stays attached", "Wait -- what?", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Fatalf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestLeaseStamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))
	got := LeaseStamp(at)
	want := time.Date(2024, 3, 1, 11, 0, 0, 123456000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("LeaseStamp() = %v, want %v", got, want)
	}
}

func TestInlineHighlightInBounds(t *testing.T) {
	tests := []struct {
		h    InlineHighlight
		n    int
		want bool
	}{
		{InlineHighlight{Start: 0, End: 10}, 10, true},
		{InlineHighlight{Start: 5, End: 5}, 10, false},
		{InlineHighlight{Start: -1, End: 3}, 10, false},
		{InlineHighlight{Start: 2, End: 11}, 10, false},
	}
	for _, tt := range tests {
		if got := tt.h.InBounds(tt.n); got != tt.want {
			t.Errorf("InBounds(%+v, %d) = %v, want %v", tt.h, tt.n, got, tt.want)
		}
	}
}
