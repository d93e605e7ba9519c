// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(project).Error; err != nil {
		recordError(span, "project.create", err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "project.get_by_id", err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// GetWithBooks 获取项目及其书籍
func (r *ProjectRepository) GetWithBooks(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetWithBooks")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	err := db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("number ASC")
	}).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "project.get_with_books", err)
		return nil, fmt.Errorf("failed to get project with books: %w", err)
	}
	return &project, nil
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Project{}).Where("id = ?", project.ID).Updates(map[string]any{
		"name":        project.Name,
		"description": project.Description,
		"genre":       project.Genre,
		"total_books": project.TotalBooks,
	}).Error
	if err != nil {
		recordError(span, "project.update", err)
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// Delete 删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Project{}, "id = ?", id).Error; err != nil {
		recordError(span, "project.delete", err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List 按条件分页获取项目列表
func (r *ProjectRepository) List(ctx context.Context, query repository.ProjectQuery) (*repository.ProjectPage, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.List")
	defer span.End()

	query = query.Normalized()
	db := getDB(ctx, r.client.db).Model(&entity.Project{})
	if query.Genre != "" {
		db = db.Where("genre = ?", query.Genre)
	}
	if query.Name != "" {
		db = db.Where("name = ?", query.Name)
	}

	page := &repository.ProjectPage{}
	if err := db.Count(&page.Total).Error; err != nil {
		recordError(span, "project.count", err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	if err := db.Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.PageSize).
		Find(&page.Items).Error; err != nil {
		recordError(span, "project.list", err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return page, nil
}

// BookRepository 书籍仓储实现
type BookRepository struct {
	client *Client
}

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 创建书籍
func (r *BookRepository) Create(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit("Project", "Chapters").Create(book).Error; err != nil {
		recordError(span, "book.create", err)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取书籍
func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "book.get_by_id", err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// GetWithProject 获取书籍并加载所属项目
func (r *BookRepository) GetWithProject(ctx context.Context, id string) (*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.GetWithProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var book entity.Book
	if err := db.Preload("Project").First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		recordError(span, "book.get_with_project", err)
		return nil, fmt.Errorf("failed to get book with project: %w", err)
	}
	return &book, nil
}

// Update 更新书籍
func (r *BookRepository) Update(ctx context.Context, book *entity.Book) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
		"number": book.Number,
		"title":  book.Title,
	}).Error
	if err != nil {
		recordError(span, "book.update", err)
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// Delete 删除书籍
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Book{}, "id = ?", id).Error; err != nil {
		recordError(span, "book.delete", err)
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// ListByProject 获取项目下的书籍
func (r *BookRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Book, error) {
	ctx, span := tracer.Start(ctx, "postgres.BookRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var books []*entity.Book
	if err := db.Where("project_id = ?", projectID).Order("number ASC").Find(&books).Error; err != nil {
		recordError(span, "book.list_by_project", err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}
