// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"manuscript-editor-api/internal/application/quota"
	"manuscript-editor-api/internal/application/upload"
	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	"manuscript-editor-api/internal/interfaces/http/dto"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// multipartOverhead 表单字段与边界的额外字节
const multipartOverhead = 1 << 20

// ChapterUploader 章节上传
type ChapterUploader interface {
	Upload(ctx context.Context, in upload.Input) (*entity.Chapter, error)
	MaxBytes() int64
}

// ChapterReanalyzer 重新分析
type ChapterReanalyzer interface {
	Reanalyze(ctx context.Context, chapterID string) (*entity.Chapter, error)
}

// UsageReader 章节用量查询
type UsageReader interface {
	ChapterUsage(ctx context.Context, chapterID string) (*quota.ChapterUsage, error)
}

// ChapterHandler 章节处理器
type ChapterHandler struct {
	chapters repository.ChapterRepository
	books    repository.BookRepository
	uploader ChapterUploader
	analyzer ChapterReanalyzer
	usage    UsageReader
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(
	chapters repository.ChapterRepository,
	books repository.BookRepository,
	uploader ChapterUploader,
	analyzer ChapterReanalyzer,
	usage UsageReader,
) *ChapterHandler {
	return &ChapterHandler{
		chapters: chapters,
		books:    books,
		uploader: uploader,
		analyzer: analyzer,
		usage:    usage,
	}
}

// UploadChapter 上传章节并提交分析
// @Summary 上传章节
// @Tags Chapters
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "章节文件 (.txt .md .rtf .scriv .docx)"
// @Param bookId formData string true "书籍 ID"
// @Param chapterNumber formData int false "章节号" default(1)
// @Param title formData string false "标题"
// @Success 201 {object} dto.Response[dto.UploadChapterResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Router /v1/chapters/upload [post]
func (h *ChapterHandler) UploadChapter(c *gin.Context) {
	ctx := c.Request.Context()
	maxBytes := h.uploader.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.Fail(c, apperrors.ErrFileTooLarge.WithDetail(fmt.Sprintf("max %d bytes", maxBytes)))
			return
		}
		dto.Fail(c, apperrors.ErrInvalidParam.WithDetail("no file uploaded"))
		return
	}
	if fh.Size > maxBytes {
		dto.Fail(c, apperrors.ErrFileTooLarge.WithDetail(fmt.Sprintf("max %d bytes", maxBytes)))
		return
	}

	number := 1
	if raw := strings.TrimSpace(c.PostForm("chapterNumber")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			dto.Fail(c, apperrors.ErrInvalidParam.WithDetail("chapterNumber must be a positive integer"))
			return
		}
		number = n
	}

	f, err := fh.Open()
	if err != nil {
		logger.Error(ctx, "failed to open uploaded file", err)
		dto.Fail(c, apperrors.ErrInternalError)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		logger.Error(ctx, "failed to read uploaded file", err)
		dto.Fail(c, apperrors.ErrInternalError)
		return
	}

	chapter, err := h.uploader.Upload(ctx, upload.Input{
		BookID:        c.PostForm("bookId"),
		ChapterNumber: number,
		Title:         c.PostForm("title"),
		Filename:      fh.Filename,
		ContentType:   fh.Header.Get("Content-Type"),
		Data:          data,
	})
	if err != nil {
		respondError(c, "failed to upload chapter", err)
		return
	}
	dto.Created(c, dto.ToUploadChapterResponse(chapter))
}

// ListBookChapters 书籍章节列表，按章节号升序，每章附最新反馈
// @Summary 获取书籍章节
// @Tags Chapters
// @Produce json
// @Param bid path string true "书籍 ID"
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/books/{bid}/chapters [get]
func (h *ChapterHandler) ListBookChapters(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := dto.BindBookID(c)

	book, err := h.books.GetByID(ctx, bookID)
	if err != nil {
		respondError(c, "failed to get book", err)
		return
	}
	if book == nil {
		dto.Fail(c, apperrors.ErrBookNotFound)
		return
	}

	chapters, err := h.chapters.ListByBook(ctx, bookID)
	if err != nil {
		respondError(c, "failed to list chapters", err)
		return
	}
	dto.Success(c, dto.ToChapterListResponse(chapters))
}

// GetChapter 章节详情（轮询接口）
// @Summary 获取章节详情
// @Description 客户端轮询直到 status 为 COMPLETED 或 FAILED
// @Tags Chapters
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter, err := h.chapters.GetDetail(ctx, dto.BindChapterID(c))
	if err != nil {
		respondError(c, "failed to get chapter", err)
		return
	}
	if chapter == nil {
		dto.Fail(c, apperrors.ErrChapterNotFound)
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}

// AnalyzeChapter 重新分析
// @Summary 重新分析章节
// @Tags Chapters
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 202 {object} dto.Response[dto.AnalyzeChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid}/analyze [post]
func (h *ChapterHandler) AnalyzeChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter, err := h.analyzer.Reanalyze(ctx, dto.BindChapterID(c))
	if err != nil {
		respondError(c, "failed to resubmit chapter", err)
		return
	}
	dto.Accepted(c, &dto.AnalyzeChapterResponse{ID: chapter.ID, Status: string(chapter.Status)})
}

// DeleteChapter 删除章节及其反馈与摘要
// @Summary 删除章节
// @Tags Chapters
// @Param cid path string true "章节 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chapters/{cid} [delete]
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	chapter, err := h.chapters.GetByID(ctx, chapterID)
	if err != nil {
		respondError(c, "failed to get chapter", err)
		return
	}
	if chapter == nil {
		dto.Fail(c, apperrors.ErrChapterNotFound)
		return
	}
	if err := h.chapters.Delete(ctx, chapterID); err != nil {
		respondError(c, "failed to delete chapter", err)
		return
	}
	logger.Info(ctx, "chapter deleted", "chapter_id", chapterID)
	dto.NoContent(c)
}

// GetChapterUsage 章节 LLM 用量流水与合计
// @Summary 获取章节用量
// @Tags Chapters
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterUsageResponse]
// @Router /v1/chapters/{cid}/usage [get]
func (h *ChapterHandler) GetChapterUsage(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	chapter, err := h.chapters.GetByID(ctx, chapterID)
	if err != nil {
		respondError(c, "failed to get chapter", err)
		return
	}
	if chapter == nil {
		dto.Fail(c, apperrors.ErrChapterNotFound)
		return
	}

	usage, err := h.usage.ChapterUsage(ctx, chapterID)
	if err != nil {
		respondError(c, "failed to load chapter usage", err)
		return
	}
	dto.Success(c, dto.ToChapterUsageResponse(usage))
}

// respondError 客户端错误直接返回，其余记录日志
func respondError(c *gin.Context, msg string, err error) {
	if !apperrors.IsValidation(err) {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.Fail(c, err)
}
