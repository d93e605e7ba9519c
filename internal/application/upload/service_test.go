package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"manuscript-editor-api/internal/domain/entity"
	apperrors "manuscript-editor-api/pkg/errors"
)

type fakeBooks struct {
	books map[string]*entity.Book
}

func (f fakeBooks) Create(context.Context, *entity.Book) error { return nil }
func (f fakeBooks) GetByID(_ context.Context, id string) (*entity.Book, error) {
	return f.books[id], nil
}
func (f fakeBooks) GetWithProject(ctx context.Context, id string) (*entity.Book, error) {
	return f.GetByID(ctx, id)
}
func (f fakeBooks) Update(context.Context, *entity.Book) error                  { return nil }
func (f fakeBooks) Delete(context.Context, string) error                        { return nil }
func (f fakeBooks) ListByProject(context.Context, string) ([]*entity.Book, error) { return nil, nil }

// fakeChapters 只记录 Create 与 FailAnalysis
type fakeChapters struct {
	created []*entity.Chapter
}

func (f *fakeChapters) Create(_ context.Context, c *entity.Chapter) error {
	f.created = append(f.created, c)
	return nil
}
func (f *fakeChapters) GetByID(context.Context, string) (*entity.Chapter, error)   { return nil, nil }
func (f *fakeChapters) GetDetail(context.Context, string) (*entity.Chapter, error) { return nil, nil }
func (f *fakeChapters) Delete(context.Context, string) error                      { return nil }
func (f *fakeChapters) ListByBook(context.Context, string) ([]*entity.Chapter, error) {
	return nil, nil
}
func (f *fakeChapters) ListCompletedSummaries(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (f *fakeChapters) BeginAnalysis(context.Context, string, time.Time, time.Time) error {
	return nil
}
func (f *fakeChapters) CompleteAnalysis(context.Context, string, time.Time, time.Time) error {
	return nil
}
func (f *fakeChapters) FailAnalysis(context.Context, string, time.Time, string) error {
	return nil
}
func (f *fakeChapters) Resubmit(context.Context, string, time.Time) error { return nil }

type fakeEnqueuer struct {
	err      error
	chapters []*entity.Chapter
	projects []string
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, c *entity.Chapter, projectID string, _ int) error {
	if f.err != nil {
		return f.err
	}
	f.chapters = append(f.chapters, c)
	f.projects = append(f.projects, projectID)
	return nil
}

func newTestService(maxBytes int64) (*Service, *fakeChapters, *fakeEnqueuer, *entity.Book) {
	book := entity.NewBook("project-1", 1, "Book One")
	chapters := &fakeChapters{}
	enq := &fakeEnqueuer{}
	svc := NewService(fakeBooks{books: map[string]*entity.Book{book.ID: book}}, chapters, enq, maxBytes)
	return svc, chapters, enq, book
}

func TestUploadCreatesProcessingChapter(t *testing.T) {
	svc, chapters, enq, book := newTestService(0)

	got, err := svc.Upload(context.Background(), Input{
		BookID:        book.ID,
		ChapterNumber: 3,
		Filename:      "ch3.txt",
		Data:          []byte("  The  storm broke\nover the hills.  "),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if got.Status != entity.ChapterStatusProcessing {
		t.Fatalf("status = %s, want PROCESSING", got.Status)
	}
	if got.Title != "Chapter 3" || got.Number != 3 || got.WordCount != 6 {
		t.Fatalf("chapter = %+v", got)
	}
	if len(chapters.created) != 1 || chapters.created[0].ID != got.ID {
		t.Fatalf("created = %d rows", len(chapters.created))
	}
	if diff := cmp.Diff([]string{"project-1"}, enq.projects); diff != "" {
		t.Fatalf("enqueued projects mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadSpanCarriesChapterAndFormat(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	svc, _, _, book := newTestService(0)
	got, err := svc.Upload(context.Background(), Input{BookID: book.ID, Filename: "c.md", Data: []byte("words here")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := svc.Upload(context.Background(), Input{BookID: book.ID, Filename: "c.pdf", Data: []byte("x")}); err == nil {
		t.Fatalf("Upload(pdf) error = nil")
	}

	var attrs []map[attribute.Key]string
	for _, span := range recorder.Ended() {
		if span.Name() != "upload.Upload" {
			continue
		}
		m := map[attribute.Key]string{}
		for _, kv := range span.Attributes() {
			m[kv.Key] = kv.Value.AsString()
		}
		attrs = append(attrs, m)
	}
	want := []map[attribute.Key]string{
		{"format": "md", "chapter_id": got.ID},
		{"format": "unknown"},
	}
	if diff := cmp.Diff(want, attrs); diff != "" {
		t.Fatalf("span attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadDefaultsChapterNumber(t *testing.T) {
	svc, _, _, book := newTestService(0)
	got, err := svc.Upload(context.Background(), Input{BookID: book.ID, Filename: "a.md", Title: "Prologue", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got.Number != 1 || got.Title != "Prologue" {
		t.Fatalf("chapter = %d %q", got.Number, got.Title)
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		in      func(bookID string) Input
		wantErr error
	}{
		{
			name:    "whitespace only content",
			in:      func(id string) Input { return Input{BookID: id, Filename: "a.txt", Data: []byte(" \n\t ")} },
			wantErr: apperrors.ErrEmptyContent,
		},
		{
			name:    "empty file",
			in:      func(id string) Input { return Input{BookID: id, Filename: "a.txt"} },
			wantErr: apperrors.ErrEmptyContent,
		},
		{
			name:    "unsupported type",
			in:      func(id string) Input { return Input{BookID: id, Filename: "a.pdf", Data: []byte("x")} },
			wantErr: apperrors.ErrUnsupportedFile,
		},
		{
			name:    "too large",
			in:      func(id string) Input { return Input{BookID: id, Filename: "a.txt", Data: make([]byte, 17)} },
			wantErr: apperrors.ErrFileTooLarge,
		},
		{
			name:    "missing book id",
			in:      func(string) Input { return Input{Filename: "a.txt", Data: []byte("x")} },
			wantErr: apperrors.ErrInvalidParam,
		},
		{
			name:    "unknown book",
			in:      func(string) Input { return Input{BookID: "nope", Filename: "a.txt", Data: []byte("x")} },
			wantErr: apperrors.ErrBookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, chapters, enq, book := newTestService(16)
			_, err := svc.Upload(context.Background(), tt.in(book.ID))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.wantErr)
			}
			if len(chapters.created) != 0 || len(enq.chapters) != 0 {
				t.Fatalf("rejected upload must not create or enqueue a chapter")
			}
		})
	}
}

func TestUploadQueueFailure(t *testing.T) {
	svc, chapters, enq, book := newTestService(0)
	enq.err = apperrors.Wrap(errors.New("redis down"), apperrors.CodeQueueError, "failed to queue analysis")

	_, err := svc.Upload(context.Background(), Input{BookID: book.ID, Filename: "a.txt", Data: []byte("text")})
	if apperrors.AsAppError(err).Code != apperrors.CodeQueueError {
		t.Fatalf("Upload() error = %v, want queue error", err)
	}
	if len(chapters.created) != 1 {
		t.Fatalf("chapter row should exist so the failure is visible")
	}
}
