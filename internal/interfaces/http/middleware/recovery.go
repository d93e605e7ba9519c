package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"manuscript-editor-api/internal/interfaces/http/dto"
	apperrors "manuscript-editor-api/pkg/errors"
	"manuscript-editor-api/pkg/logger"
)

// Recovery 捕获处理链中的 panic，返回统一错误响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// 客户端断开时 net/http 用 ErrAbortHandler 终止响应，继续向上抛出
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.ErrorWithDetail(c, http.StatusInternalServerError, "internal server error", &dto.ErrorDetail{
				ErrorCode: string(apperrors.CodeInternalError),
			})
			c.Abort()
		}()

		c.Next()
	}
}
