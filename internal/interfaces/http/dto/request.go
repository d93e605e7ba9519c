package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"manuscript-editor-api/internal/domain/repository"
)

// 路由参数名，与 router/routes.go 保持一致
const (
	paramProject = "pid"
	paramBook    = "bid"
	paramChapter = "cid"
)

// BindProjectQuery 读取 ?page=&page_size=&genre=&name=，非法数字按缺省处理
func BindProjectQuery(c *gin.Context) repository.ProjectQuery {
	return repository.ProjectQuery{
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}.Normalized()
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

func BindProjectID(c *gin.Context) string { return c.Param(paramProject) }

func BindBookID(c *gin.Context) string { return c.Param(paramBook) }

func BindChapterID(c *gin.Context) string { return c.Param(paramChapter) }
