// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)
		projects.PUT("/:pid", h.Project.UpdateProject)
		projects.DELETE("/:pid", h.Project.DeleteProject)

		// 章节大纲
		projects.GET("/:pid/outlines", h.Outline.ListOutlines)
		projects.POST("/:pid/outlines", h.Outline.CreateOutlines)
		projects.PUT("/:pid/outlines/:num", h.Outline.UpdateOutline)
		projects.DELETE("/:pid/outlines/:num", h.Outline.DeleteOutline)

		// 章节查询
		projects.GET("/:pid/chapters", h.Chapter.ListChapters)
		projects.GET("/:pid/chapters/:num", h.Chapter.GetChapter)
		projects.GET("/:pid/chapters/:num/versions", h.Writer.ListVersions)
		projects.GET("/:pid/chapters/:num/reviews", h.Writer.ReviewHistory)

		// 章节生成, 评审与定稿
		projects.POST("/:pid/chapters/generate", h.Writer.Generate)
		projects.POST("/:pid/chapters/generate-with-review", h.Writer.GenerateWithReview)
		projects.POST("/:pid/chapters/evaluate", h.Writer.EvaluateVersions)
		projects.POST("/:pid/chapters/evaluate/cancel", h.Writer.CancelEvaluation)
		projects.POST("/:pid/chapters/select", h.Writer.SelectVersion)

		// 连续创作
		projects.POST("/:pid/chapters/auto-create", h.AutoCreate.Start)
		projects.POST("/:pid/chapters/auto-create/stop", h.AutoCreate.Stop)

		// 运行控制
		projects.POST("/:pid/writer/stop", h.Writer.StopRun)
		projects.GET("/:pid/writer/status", h.Writer.RunStatus)
	}

	// 提供商注册表
	providers := v1.Group("/providers")
	{
		providers.GET("", h.Provider.GetRegistry)
		providers.POST("/:name/test", h.Provider.TestProvider)
		providers.PUT("/nodes/:node", h.Provider.SetNodeBinding)
	}

	// 系统配置
	settings := v1.Group("/settings")
	{
		settings.GET("", h.Provider.ListSettings)
		settings.PUT("/:key", h.Provider.SetSetting)
	}
}
