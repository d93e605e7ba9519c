package upload

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
	"manuscript-editor-api/pkg/metrics"
)

var tracer = otel.Tracer("upload")

// DefaultMaxBytes 上传文件大小上限
const DefaultMaxBytes int64 = 10 << 20

// Enqueuer 提交分析任务，提交失败时负责把章节置为 FAILED
type Enqueuer interface {
	Enqueue(ctx context.Context, chapter *entity.Chapter, projectID string, attempt int) error
}

// Input 一次上传
type Input struct {
	BookID        string
	ChapterNumber int
	Title         string
	Filename      string
	ContentType   string
	Data          []byte
}

// Service 章节上传服务
type Service struct {
	books    repository.BookRepository
	chapters repository.ChapterRepository
	enqueuer Enqueuer
	maxBytes int64
}

// NewService maxBytes <= 0 时使用 DefaultMaxBytes
func NewService(books repository.BookRepository, chapters repository.ChapterRepository, enqueuer Enqueuer, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{books: books, chapters: chapters, enqueuer: enqueuer, maxBytes: maxBytes}
}

// MaxBytes 上传大小上限
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload 校验并抽取正文，以 PROCESSING 状态建档后提交分析
//
// 校验失败时不写入任何章节。
func (s *Service) Upload(ctx context.Context, in Input) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "upload.Upload")
	defer span.End()

	format, chapter, err := s.upload(ctx, in)
	status := "accepted"
	if err != nil {
		status = "rejected"
		span.RecordError(err)
	}
	if format == "" {
		format = "unknown"
	}
	span.SetAttributes(attribute.String("format", string(format)))
	if chapter != nil {
		span.SetAttributes(attribute.String("chapter_id", chapter.ID))
	}
	metrics.ChapterUploadsTotal.WithLabelValues(string(format), status).Inc()
	return chapter, err
}

func (s *Service) upload(ctx context.Context, in Input) (Format, *entity.Chapter, error) {
	bookID := strings.TrimSpace(in.BookID)
	if bookID == "" {
		return "", nil, apperrors.ErrInvalidParam.WithDetail("bookId is required")
	}
	if int64(len(in.Data)) > s.maxBytes {
		return "", nil, apperrors.ErrFileTooLarge.WithDetail(fmt.Sprintf("max %d bytes", s.maxBytes))
	}

	format, err := DetectFormat(in.Filename, in.ContentType)
	if err != nil {
		return "", nil, err
	}
	content, err := Extract(format, in.Data, s.maxBytes)
	if err != nil {
		return format, nil, err
	}
	if strings.TrimSpace(content) == "" {
		return format, nil, apperrors.ErrEmptyContent
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return format, nil, err
	}
	if book == nil {
		return format, nil, apperrors.ErrBookNotFound.WithDetail(bookID)
	}

	number := in.ChapterNumber
	if number < 1 {
		number = 1
	}
	chapter := entity.NewChapter(book.ID, number, in.Title, content)
	next, err := entity.NextStatus(chapter.Status, entity.EventUpload, false)
	if err != nil {
		return format, nil, err
	}
	chapter.Status = next

	if err := s.chapters.Create(ctx, chapter); err != nil {
		return format, nil, err
	}
	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))

	ctx = logger.WithContext(ctx, logger.ChapterIDKey, chapter.ID)
	logger.Info(ctx, "chapter uploaded",
		"book_id", book.ID,
		"number", chapter.Number,
		"format", string(format),
		"word_count", chapter.WordCount,
	)

	if err := s.enqueuer.Enqueue(ctx, chapter, book.ProjectID, 1); err != nil {
		return format, nil, err
	}
	return format, chapter, nil
}
