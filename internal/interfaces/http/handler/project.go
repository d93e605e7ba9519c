package handler

import (
	"github.com/gin-gonic/gin"

	"manuscript-editor-api/internal/application/catalog"
	"manuscript-editor-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目与书籍处理器
type ProjectHandler struct {
	catalog *catalog.Service
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(catalog *catalog.Service) *ProjectHandler {
	return &ProjectHandler{catalog: catalog}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param genre query string false "按类型过滤"
// @Param name query string false "按名称过滤"
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	query := dto.BindProjectQuery(c)

	result, err := h.catalog.ListProjects(c.Request.Context(), query)
	if err != nil {
		respondError(c, "failed to list projects", err)
		return
	}

	meta := dto.NewPageMeta(query.Page, query.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToProjectListResponse(result.Items), meta)
}

// CreateProject 创建项目
// @Summary 创建项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.catalog.CreateProject(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, "failed to create project", err)
		return
	}
	dto.Created(c, dto.ToProjectResponse(project))
}

// GetProject 获取项目详情（含书籍）
// @Summary 获取项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.catalog.GetProject(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, "failed to get project", err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// UpdateProject 更新项目
// @Summary 更新项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.UpdateProjectRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Router /v1/projects/{pid} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.catalog.UpdateProject(c.Request.Context(), dto.BindProjectID(c), req.ToInput())
	if err != nil {
		respondError(c, "failed to update project", err)
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// DeleteProject 删除项目
// @Summary 删除项目
// @Tags Projects
// @Param pid path string true "项目 ID"
// @Success 204
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.catalog.DeleteProject(c.Request.Context(), dto.BindProjectID(c)); err != nil {
		respondError(c, "failed to delete project", err)
		return
	}
	dto.NoContent(c)
}

// CreateBook 在项目下创建书籍
// @Summary 创建书籍
// @Tags Books
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateBookRequest true "书籍信息"
// @Success 201 {object} dto.Response[dto.BookResponse]
// @Router /v1/projects/{pid}/books [post]
func (h *ProjectHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := h.catalog.CreateBook(c.Request.Context(), dto.BindProjectID(c), catalog.CreateBookInput{
		Number: req.Number,
		Title:  req.Title,
	})
	if err != nil {
		respondError(c, "failed to create book", err)
		return
	}
	dto.Created(c, dto.ToBookResponse(book))
}

// ListBooks 项目书籍列表
// @Summary 获取项目书籍
// @Tags Books
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.BookListResponse]
// @Router /v1/projects/{pid}/books [get]
func (h *ProjectHandler) ListBooks(c *gin.Context) {
	books, err := h.catalog.ListBooks(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		respondError(c, "failed to list books", err)
		return
	}
	dto.Success(c, dto.ToBookListResponse(books))
}

// GetBook 书籍详情（含项目）
// @Summary 获取书籍详情
// @Tags Books
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Router /v1/books/{bid} [get]
func (h *ProjectHandler) GetBook(c *gin.Context) {
	book, err := h.catalog.GetBook(c.Request.Context(), dto.BindBookID(c))
	if err != nil {
		respondError(c, "failed to get book", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(book))
}

// UpdateBook 更新书籍
// @Summary 更新书籍
// @Tags Books
// @Accept json
// @Produce json
// @Param bid path string true "书籍 ID"
// @Param body body dto.UpdateBookRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Router /v1/books/{bid} [put]
func (h *ProjectHandler) UpdateBook(c *gin.Context) {
	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := h.catalog.UpdateBook(c.Request.Context(), dto.BindBookID(c), catalog.UpdateBookInput{
		Number: req.Number,
		Title:  req.Title,
	})
	if err != nil {
		respondError(c, "failed to update book", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(book))
}

// DeleteBook 删除书籍及其章节
// @Summary 删除书籍
// @Tags Books
// @Param bid path string true "书籍 ID"
// @Success 204
// @Router /v1/books/{bid} [delete]
func (h *ProjectHandler) DeleteBook(c *gin.Context) {
	if err := h.catalog.DeleteBook(c.Request.Context(), dto.BindBookID(c)); err != nil {
		respondError(c, "failed to delete book", err)
		return
	}
	dto.NoContent(c)
}
