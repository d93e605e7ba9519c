// Package catalog 管理项目与书籍
package catalog

import (
	"context"
	"fmt"
	"strings"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// ContextInvalidator 清除分析上下文缓存
type ContextInvalidator interface {
	InvalidateBookContexts(ctx context.Context, bookIDs ...string) error
}

// CreateProjectInput 创建项目
type CreateProjectInput struct {
	Name        string
	Description string
	Genre       string
	TotalBooks  *int
	// FirstBookTitle 非空时在同一事务中创建第 1 本书
	FirstBookTitle string
}

// UpdateProjectInput 仅更新非 nil 字段
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Genre       *string
	TotalBooks  *int
}

type CreateBookInput struct {
	Number int
	Title  string
}

type UpdateBookInput struct {
	Number *int
	Title  *string
}

// Service 项目与书籍服务
type Service struct {
	projects repository.ProjectRepository
	books    repository.BookRepository
	tx       repository.Transactor
	cache    ContextInvalidator
}

// NewService cache 可为 nil
func NewService(projects repository.ProjectRepository, books repository.BookRepository, tx repository.Transactor, cache ContextInvalidator) *Service {
	return &Service{projects: projects, books: books, tx: tx, cache: cache}
}

func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*entity.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("name is required")
	}
	if err := validateTotalBooks(in.TotalBooks); err != nil {
		return nil, err
	}

	project := entity.NewProject(name, in.Description, in.Genre)
	project.TotalBooks = in.TotalBooks

	create := func(ctx context.Context) error {
		if err := s.projects.Create(ctx, project); err != nil {
			return err
		}
		if title := strings.TrimSpace(in.FirstBookTitle); title != "" {
			book := entity.NewBook(project.ID, 1, title)
			if err := s.books.Create(ctx, book); err != nil {
				return err
			}
			project.Books = []*entity.Book{book}
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.WithTransaction(ctx, create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "project created", "project_id", project.ID, "genre", project.Genre)
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, query repository.ProjectQuery) (*repository.ProjectPage, error) {
	return s.projects.List(ctx, query.Normalized())
}

// GetProject 返回项目及其书籍
func (s *Service) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projects.GetWithBooks(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return project, nil
}

// UpdateProject 体裁或系列长度变化会影响提示词，更新后清除该项目全部书籍的上下文缓存
func (s *Service) UpdateProject(ctx context.Context, id string, in UpdateProjectInput) (*entity.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.ErrInvalidParam.WithDetail("name must not be blank")
		}
		project.Name = name
	}
	if in.Description != nil {
		project.Description = *in.Description
	}
	if in.Genre != nil {
		genre := strings.TrimSpace(*in.Genre)
		if genre == "" {
			genre = entity.DefaultGenre
		}
		project.Genre = genre
	}
	if in.TotalBooks != nil {
		if err := validateTotalBooks(in.TotalBooks); err != nil {
			return nil, err
		}
		project.TotalBooks = in.TotalBooks
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	s.invalidateProject(ctx, project.ID)
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if project == nil {
		return apperrors.ErrProjectNotFound
	}
	s.invalidateProject(ctx, id)
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "project deleted", "project_id", id)
	return nil
}

func (s *Service) CreateBook(ctx context.Context, projectID string, in CreateBookInput) (*entity.Book, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	if in.Number < 1 {
		return nil, apperrors.ErrInvalidParam.WithDetail("book number must be >= 1")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fmt.Sprintf("Book %d", in.Number)
	}

	book := entity.NewBook(projectID, in.Number, title)
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *Service) ListBooks(ctx context.Context, projectID string) ([]*entity.Book, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return s.books.ListByProject(ctx, projectID)
}

// GetBook 返回书籍及所属项目
func (s *Service) GetBook(ctx context.Context, id string) (*entity.Book, error) {
	book, err := s.books.GetWithProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrBookNotFound
	}
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, in UpdateBookInput) (*entity.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrBookNotFound
	}
	if in.Number != nil {
		if *in.Number < 1 {
			return nil, apperrors.ErrInvalidParam.WithDetail("book number must be >= 1")
		}
		book.Number = *in.Number
	}
	if in.Title != nil {
		if title := strings.TrimSpace(*in.Title); title != "" {
			book.Title = title
		}
	}
	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	s.invalidate(ctx, book.ID)
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id string) error {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if book == nil {
		return apperrors.ErrBookNotFound
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) invalidateProject(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	books, err := s.books.ListByProject(ctx, projectID)
	if err != nil {
		logger.Warn(ctx, "failed to list books for cache invalidation", "project_id", projectID, "error", err.Error())
		return
	}
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	s.invalidate(ctx, ids...)
}

func (s *Service) invalidate(ctx context.Context, bookIDs ...string) {
	if s.cache == nil || len(bookIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateBookContexts(ctx, bookIDs...); err != nil {
		logger.Warn(ctx, "failed to invalidate book context cache", "error", err.Error())
	}
}

func validateTotalBooks(n *int) error {
	if n != nil && *n < 1 {
		return apperrors.ErrInvalidParam.WithDetail("total_books must be >= 1")
	}
	return nil
}
