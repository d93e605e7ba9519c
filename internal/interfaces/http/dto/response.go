// Package dto 提供 HTTP 层数据传输对象与统一响应信封
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "manuscript-editor-api/pkg/errors"
)

// Response 成功响应信封
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageMeta pageSize 须大于 0
func NewPageMeta(page, pageSize, total int) *PageMeta {
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}

// ErrorDetail 错误详情，ErrorCode 对应 pkg/errors 的业务码
type ErrorDetail struct {
	ErrorCode   string   `json:"error_code,omitempty"`
	Details     string   `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func reply[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

func Success[T any](c *gin.Context, data T) {
	reply(c, http.StatusOK, "success", data, nil)
}

func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	reply(c, http.StatusOK, "success", data, meta)
}

func Created[T any](c *gin.Context, data T) {
	reply(c, http.StatusCreated, "created", data, nil)
}

// Accepted 异步任务已受理，客户端随后轮询结果
func Accepted[T any](c *gin.Context, data T) {
	reply(c, http.StatusAccepted, "accepted", data, nil)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithDetail 写错误信封，detail 可为 nil
func ErrorWithDetail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString("trace_id"),
	})
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusBadRequest, message, &ErrorDetail{ErrorCode: string(apperrors.CodeInvalidParam)})
}

// Fail 按 AppError 映射状态码。非 AppError 一律 500；5xx 不暴露内部信息，模型调用失败除外
func Fail(c *gin.Context, err error) {
	appErr := apperrors.ErrInternalError
	if apperrors.IsAppError(err) {
		appErr = apperrors.AsAppError(err)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message, details := appErr.Message, appErr.Detail
	if status >= http.StatusInternalServerError && appErr.Code != apperrors.CodeLLMCallFailed {
		message, details = "internal server error", ""
	}
	ErrorWithDetail(c, status, message, &ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   details,
	})
}
