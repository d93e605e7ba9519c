package dto

import (
	"time"

	"manuscript-editor-api/internal/application/catalog"
	"manuscript-editor-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name           string `json:"name" binding:"required,max=255"`
	Description    string `json:"description" binding:"max=5000"`
	Genre          string `json:"genre" binding:"max=100"`
	TotalBooks     *int   `json:"totalBooks,omitempty" binding:"omitempty,gte=1"`
	FirstBookTitle string `json:"firstBookTitle,omitempty" binding:"max=255"`
}

func (r *CreateProjectRequest) ToInput() catalog.CreateProjectInput {
	return catalog.CreateProjectInput{
		Name:           r.Name,
		Description:    r.Description,
		Genre:          r.Genre,
		TotalBooks:     r.TotalBooks,
		FirstBookTitle: r.FirstBookTitle,
	}
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=5000"`
	Genre       *string `json:"genre,omitempty" binding:"omitempty,max=100"`
	TotalBooks  *int    `json:"totalBooks,omitempty" binding:"omitempty,gte=1"`
}

func (r *UpdateProjectRequest) ToInput() catalog.UpdateProjectInput {
	return catalog.UpdateProjectInput{
		Name:        r.Name,
		Description: r.Description,
		Genre:       r.Genre,
		TotalBooks:  r.TotalBooks,
	}
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Genre       string          `json:"genre"`
	TotalBooks  *int            `json:"totalBooks,omitempty"`
	Books       []*BookResponse `json:"books,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []*ProjectResponse `json:"projects"`
}

func ToProjectResponse(p *entity.Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	resp := &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Genre:       p.Genre,
		TotalBooks:  p.TotalBooks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, b := range p.Books {
		resp.Books = append(resp.Books, ToBookResponse(b))
	}
	return resp
}

func ToProjectListResponse(projects []*entity.Project) *ProjectListResponse {
	out := &ProjectListResponse{Projects: make([]*ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		out.Projects = append(out.Projects, ToProjectResponse(p))
	}
	return out
}

// CreateBookRequest 创建书籍请求
type CreateBookRequest struct {
	Number int    `json:"number" binding:"required,gte=1"`
	Title  string `json:"title" binding:"max=255"`
}

// UpdateBookRequest 更新书籍请求
type UpdateBookRequest struct {
	Number *int    `json:"number,omitempty" binding:"omitempty,gte=1"`
	Title  *string `json:"title,omitempty" binding:"omitempty,max=255"`
}

// BookResponse 书籍响应
type BookResponse struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"projectId"`
	Number    int              `json:"number"`
	Title     string           `json:"title"`
	Project   *ProjectResponse `json:"project,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// BookListResponse 书籍列表响应
type BookListResponse struct {
	Books []*BookResponse `json:"books"`
}

func ToBookResponse(b *entity.Book) *BookResponse {
	if b == nil {
		return nil
	}
	resp := &BookResponse{
		ID:        b.ID,
		ProjectID: b.ProjectID,
		Number:    b.Number,
		Title:     b.Title,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Project != nil {
		p := *b.Project
		p.Books = nil
		resp.Project = ToProjectResponse(&p)
	}
	return resp
}

func ToBookListResponse(books []*entity.Book) *BookListResponse {
	out := &BookListResponse{Books: make([]*BookResponse, 0, len(books))}
	for _, b := range books {
		out.Books = append(out.Books, ToBookResponse(b))
	}
	return out
}
