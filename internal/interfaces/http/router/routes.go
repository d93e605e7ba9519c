package router

import (
	"manuscript-editor-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	projectHandler *handler.ProjectHandler,
	chapterHandler *handler.ChapterHandler,
	uploadLimit gin.HandlerFunc,
) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", projectHandler.ListProjects)
		projects.POST("", projectHandler.CreateProject)
		projects.GET("/:pid", projectHandler.GetProject)
		projects.PUT("/:pid", projectHandler.UpdateProject)
		projects.DELETE("/:pid", projectHandler.DeleteProject)

		// 项目下的书
		projects.GET("/:pid/books", projectHandler.ListBooks)
		projects.POST("/:pid/books", projectHandler.CreateBook)
	}

	books := v1.Group("/books")
	{
		books.GET("/:bid", projectHandler.GetBook)
		books.PUT("/:bid", projectHandler.UpdateBook)
		books.DELETE("/:bid", projectHandler.DeleteBook)
		books.GET("/:bid/chapters", chapterHandler.ListBookChapters)
	}

	// 章节与分析
	chapters := v1.Group("/chapters")
	{
		chapters.POST("/upload", uploadLimit, chapterHandler.UploadChapter)
		chapters.GET("/:cid", chapterHandler.GetChapter)
		chapters.DELETE("/:cid", chapterHandler.DeleteChapter)
		chapters.POST("/:cid/analyze", uploadLimit, chapterHandler.AnalyzeChapter)
		chapters.GET("/:cid/usage", chapterHandler.GetChapterUsage)
	}
}
