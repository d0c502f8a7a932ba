package grading

import "fmt"

// GradingError 评卷调用错误类型
type GradingError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e GradingError) Error() string {
	return fmt.Sprintf("grading error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 3001 // 无效的API密钥
	ErrCodeInvalidRequest = 3002 // 无效的请求
	ErrCodeNetworkError   = 3003 // 网络连接错误
	ErrCodeRateLimited    = 3004 // 请求频率超限
	ErrCodeServerError    = 3005 // 服务器错误
	ErrCodeTimeout        = 3006 // 请求超时
	ErrCodeEmptyPrompt    = 3007 // 提示词为空
	ErrCodeEmptyKey       = 3008 // 标准答案为空
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey = "invalid API key"
	ErrMsgEmptyPrompt   = "prompt cannot be empty"
	ErrMsgEmptyKey      = "question key has no questions"
)

// NewGradingError 创建新的评卷错误
func NewGradingError(code int, message string) GradingError {
	return GradingError{
		Code:    code,
		Message: message,
	}
}
