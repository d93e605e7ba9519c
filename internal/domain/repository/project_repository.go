package repository

import (
	"context"

	"manuscript-editor-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// GetWithBooks 获取项目及其书籍（按书号升序）
	GetWithBooks(ctx context.Context, id string) (*entity.Project, error)

	// Update 更新项目
	Update(ctx context.Context, project *entity.Project) error

	// Delete 删除项目，级联删除书籍与章节
	Delete(ctx context.Context, id string) error

	// List 分页获取项目列表（按创建时间倒序）
	List(ctx context.Context, query ProjectQuery) (*ProjectPage, error)
}

// BookRepository 书籍仓储接口
type BookRepository interface {
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 根据 ID 获取书籍，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// GetWithProject 获取书籍并加载所属项目
	GetWithProject(ctx context.Context, id string) (*entity.Book, error)

	Update(ctx context.Context, book *entity.Book) error

	Delete(ctx context.Context, id string) error

	// ListByProject 获取项目下的书籍（按书号升序）
	ListByProject(ctx context.Context, projectID string) ([]*entity.Book, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProjectQuery 项目列表查询条件。Genre 精确匹配，Name 为空时不过滤
type ProjectQuery struct {
	Genre    string
	Name     string
	Page     int
	PageSize int
}

// Normalized 返回页码与页大小落在合法区间内的副本
func (q ProjectQuery) Normalized() ProjectQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize < 1:
		q.PageSize = defaultPageSize
	case q.PageSize > maxPageSize:
		q.PageSize = maxPageSize
	}
	return q
}

// Offset 跳过的行数，调用前需先 Normalized
func (q ProjectQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ProjectPage 一页项目及满足条件的总数
type ProjectPage struct {
	Items []*entity.Project
	Total int64
}
