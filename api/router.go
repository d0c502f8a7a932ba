package api

import (
	"github.com/fyerfyer/exam-grading-system/api/handler"
	"github.com/fyerfyer/exam-grading-system/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	submissionHandler *handler.SubmissionHandler,
	keyHandler *handler.QuestionKeyHandler,
) *gin.Engine {
	// 创建默认的Gin路由引擎
	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetTraceID())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestLogger())
	}

	// 创建API分组
	api := router.Group("/api")
	{
		// 答卷管理API
		subGroup := api.Group("/submissions")
		{
			// 上传答卷 - POST /api/submissions
			subGroup.POST("", submissionHandler.UploadSubmission)

			// 获取答卷状态 - GET /api/submissions/:id/status
			subGroup.GET("/:id/status", submissionHandler.GetSubmissionStatus)

			// 获取评卷结果 - GET /api/submissions/:id/result
			subGroup.GET("/:id/result", submissionHandler.GetSubmissionResult)

			// 下载PDF评卷报告 - GET /api/submissions/:id/report
			subGroup.GET("/:id/report", submissionHandler.DownloadSubmissionReport)

			// 基于已有转写结果重新评卷 - POST /api/submissions/:id/regrade
			subGroup.POST("/:id/regrade", submissionHandler.RegradeSubmission)

			// 获取答卷列表 - GET /api/submissions
			subGroup.GET("", submissionHandler.ListSubmissions)

			// 删除答卷 - DELETE /api/submissions/:id
			subGroup.DELETE("/:id", submissionHandler.DeleteSubmission)
		}

		// 标准答案管理API
		keyGroup := api.Group("/questionkeys")
		{
			// 上传标准答案 - POST /api/questionkeys
			keyGroup.POST("", keyHandler.UploadQuestionKey)

			// 获取标准答案详情 - GET /api/questionkeys/:id
			keyGroup.GET("/:id", keyHandler.GetQuestionKey)

			// 获取标准答案列表 - GET /api/questionkeys
			keyGroup.GET("", keyHandler.ListQuestionKeys)

			// 删除标准答案 - DELETE /api/questionkeys/:id
			keyGroup.DELETE("/:id", keyHandler.DeleteQuestionKey)
		}

		// 答卷统计API - GET /api/analytics
		api.GET("/analytics", submissionHandler.GetAnalytics)

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// RegisterWebUI 注册Web UI路由
// TODO: 当前端页面准备好后实现此函数
func RegisterWebUI(router *gin.Engine) {
	// 待实现：集成前端页面
	// 示例：router.StaticFile("/", "./web/dist/index.html")
	// 示例：router.Static("/static", "./web/dist/static")
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
