// Package errors 定义应用错误码与 HTTP 状态映射
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码
type ErrorCode string

const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound ErrorCode = "3001"
	CodeChapterNotFound ErrorCode = "3002"
	CodeBookNotFound    ErrorCode = "3003"

	// 上传校验错误 (35xx)
	CodeUnsupportedFile ErrorCode = "3501"
	CodeFileTooLarge    ErrorCode = "3502"
	CodeEmptyContent    ErrorCode = "3503"

	// 业务错误 (4xxx)
	CodeAnalysisFailed     ErrorCode = "4001"
	CodeAnalysisInProgress ErrorCode = "4002"
	CodeLLMCallFailed      ErrorCode = "4005"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeQueueError    ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrChapterNotFound) 对包装后的错误也成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装底层错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeUnsupportedFile, CodeEmptyContent:
		return http.StatusBadRequest
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound, CodeProjectNotFound, CodeChapterNotFound, CodeBookNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAnalysisInProgress:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeLLMCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrProjectNotFound = New(CodeProjectNotFound, "project not found")
	ErrBookNotFound    = New(CodeBookNotFound, "book not found")
	ErrChapterNotFound = New(CodeChapterNotFound, "chapter not found")

	ErrUnsupportedFile = New(CodeUnsupportedFile, "unsupported file type")
	ErrFileTooLarge    = New(CodeFileTooLarge, "file too large")
	ErrEmptyContent    = New(CodeEmptyContent, "file content is empty")

	ErrAnalysisFailed     = New(CodeAnalysisFailed, "chapter analysis failed")
	ErrAnalysisInProgress = New(CodeAnalysisInProgress, "chapter analysis already in progress")
	ErrLLMCallFailed      = New(CodeLLMCallFailed, "LLM call failed")
)

// IsAppError 判断错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 从错误链中提取 AppError，找不到时包装为 CodeUnknown
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// IsValidation 判断是否为用户输入类错误
func IsValidation(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500
}
