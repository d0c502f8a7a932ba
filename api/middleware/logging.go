package middleware

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志字段名常量
const (
	FieldTraceID    = "trace_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldClientIP   = "client_ip"
	FieldLatency    = "latency"
	FieldUserAgent  = "user_agent"
)

// 包级日志器，API层统一使用
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	log.SetOutput(os.Stdout)

	if os.Getenv("APP_ENV") == "development" || os.Getenv("GIN_MODE") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	// 指定了日志文件时启用滚动输出
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// GetLogger 获取API层日志器
func GetLogger() *logrus.Logger {
	return log
}

// Logger 请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := log.WithFields(logrus.Fields{
			FieldMethod:     c.Request.Method,
			FieldPath:       path,
			FieldStatusCode: statusCode,
			FieldClientIP:   c.ClientIP(),
			FieldLatency:    latency.String(),
			FieldUserAgent:  c.Request.UserAgent(),
		})
		if traceID, exists := c.Get("TraceID"); exists {
			entry = entry.WithField(FieldTraceID, traceID)
		}

		switch {
		case statusCode >= 500:
			entry.Error("Request completed with server error")
		case statusCode >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// RequestLogger 请求体日志中间件
// 仅在调试模式下使用，记录请求体内容
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.Method != "GET" {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				// 读取后重置请求体，避免影响后续处理
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

				contentType := c.ContentType()
				if contentType == "application/json" && len(bodyBytes) < 4096 {
					log.WithFields(logrus.Fields{
						FieldPath: c.Request.URL.Path,
						"body":    string(bodyBytes),
					}).Debug("Request body")
				}
			}
		}

		c.Next()
	}
}

// responseBodyWriter 包装响应写入器以捕获响应体
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ResponseLogger 响应体日志中间件
// 仅在调试模式下使用，记录响应体内容
func ResponseLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		writer := &responseBodyWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if writer.body.Len() < 4096 {
			log.WithFields(logrus.Fields{
				FieldPath:       c.Request.URL.Path,
				FieldStatusCode: c.Writer.Status(),
				"body":          writer.body.String(),
			}).Debug("Response body")
		}
	}
}

// SetTraceID 为每个请求设置追踪ID
// 优先使用客户端传入的X-Trace-ID头
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set("TraceID", traceID)
		c.Writer.Header().Set("X-Trace-ID", traceID)

		c.Next()
	}
}
