package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/infrastructure/persistence/redis"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// ContextCache 读穿缓存端口
type ContextCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
}

// bookHeader 分析时需要的书籍与项目字段
type bookHeader struct {
	BookID     string `json:"bookId"`
	BookNumber int    `json:"bookNumber"`
	ProjectID  string `json:"projectId"`
	Genre      string `json:"genre"`
	TotalBooks *int   `json:"totalBooks,omitempty"`
}

// ContextLoader 组装章节分析上下文
type ContextLoader struct {
	books    repository.BookRepository
	chapters repository.ChapterRepository
	cache    ContextCache
	ttl      time.Duration
}

// NewContextLoader cache 为 nil 时直接查库
func NewContextLoader(books repository.BookRepository, chapters repository.ChapterRepository, cache ContextCache, ttl time.Duration) *ContextLoader {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ContextLoader{books: books, chapters: chapters, cache: cache, ttl: ttl}
}

// Load 返回章节上下文与所属项目 ID
//
// 前文摘要只取同书中已完成且有摘要的章节，按章节号升序，不含本章。
func (l *ContextLoader) Load(ctx context.Context, chapter *entity.Chapter) (*entity.ChapterContext, string, error) {
	header, err := l.header(ctx, chapter.BookID)
	if err != nil {
		return nil, "", err
	}

	summaries, err := l.chapters.ListCompletedSummaries(ctx, chapter.BookID, chapter.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load previous summaries: %w", err)
	}

	number := chapter.Number
	bookNumber := header.BookNumber
	cc := &entity.ChapterContext{
		Genre:             header.Genre,
		BookNumber:        &bookNumber,
		TotalBooks:        header.TotalBooks,
		ChapterNumber:     &number,
		PreviousSummaries: summaries,
	}
	return cc, header.ProjectID, nil
}

func (l *ContextLoader) header(ctx context.Context, bookID string) (*bookHeader, error) {
	if l.cache == nil {
		return l.loadHeader(ctx, bookID)
	}

	raw, err := l.cache.GetOrLoad(ctx, redis.BookContextKey(bookID), l.ttl, func(ctx context.Context) (any, error) {
		return l.loadHeader(ctx, bookID)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		logger.Warn(ctx, "book context cache unavailable, loading from database", "book_id", bookID, "error", err.Error())
		return l.loadHeader(ctx, bookID)
	}

	var h bookHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return l.loadHeader(ctx, bookID)
	}
	return &h, nil
}

func (l *ContextLoader) loadHeader(ctx context.Context, bookID string) (*bookHeader, error) {
	book, err := l.books.GetWithProject(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrBookNotFound.WithDetail(bookID)
	}
	if book.Project == nil {
		return nil, apperrors.ErrProjectNotFound.WithDetail(book.ProjectID)
	}
	return &bookHeader{
		BookID:     book.ID,
		BookNumber: book.Number,
		ProjectID:  book.ProjectID,
		Genre:      book.Project.Genre,
		TotalBooks: book.Project.TotalBooks,
	}, nil
}
