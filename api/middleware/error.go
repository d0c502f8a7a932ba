package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fyerfyer/exam-grading-system/api/model"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler 统一错误兜底中间件
// 处理器内的业务错误直接写响应，这里只负责panic恢复和遗漏的c.Errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"error": r,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				message := "An unexpected error occurred"
				// 调试模式下把panic内容带回给调用方
				if gin.Mode() == gin.DebugMode {
					message = fmt.Sprintf("Panic: %v", r)
				}

				resp := model.NewErrorResponse(http.StatusInternalServerError, message)
				resp.TraceID = traceIDFrom(c)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()

		// 处理器通过c.Error挂上但没有写响应的错误
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		traceID := traceIDFrom(c)

		log.WithFields(logrus.Fields{
			"trace_id": traceID,
			"path":     c.Request.URL.Path,
		}).Error(err.Error())

		message := "Internal server error"
		if gin.Mode() == gin.DebugMode {
			message = err.Error()
		}

		resp := model.NewErrorResponse(http.StatusInternalServerError, message)
		resp.TraceID = traceID
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	}
}

// traceIDFrom 读取SetTraceID中间件写入的追踪ID
func traceIDFrom(c *gin.Context) string {
	if value, exists := c.Get("TraceID"); exists {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
