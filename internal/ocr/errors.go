package ocr

import "fmt"

// OCRError 转录调用错误类型
type OCRError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e OCRError) Error() string {
	return fmt.Sprintf("ocr error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 2001 // 无效的API密钥
	ErrCodeInvalidRequest = 2002 // 无效的请求
	ErrCodeNetworkError   = 2003 // 网络连接错误
	ErrCodeRateLimited    = 2004 // 请求频率超限
	ErrCodeServerError    = 2005 // 服务器错误
	ErrCodeTimeout        = 2006 // 请求超时
	ErrCodeEmptyImage     = 2007 // 图像为空
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey = "invalid API key"
	ErrMsgEmptyImage    = "image cannot be empty"
)

// NewOCRError 创建新的转录错误
func NewOCRError(code int, message string) OCRError {
	return OCRError{
		Code:    code,
		Message: message,
	}
}
