package ocr

import (
	"context"
	"time"
)

// Client 图像转录客户端接口
// 负责把单页答卷图像转写为逐行文本
type Client interface {
	// Transcribe 转写一页答卷图像
	// image 为图像的URL或base64数据URI，subject 影响转写提示词
	Transcribe(ctx context.Context, image string, subject string) (string, error)

	// Name 返回模型名称
	Name() string
}

// Config 转录客户端配置
type Config struct {
	APIKey     string        // API密钥
	BaseURL    string        // API基础URL
	Model      string        // 模型名称
	Timeout    time.Duration // 请求超时时间
	MaxRetries int           // 最大重试次数
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    defaultTongyiVLEndpoint,
		Model:      ModelQwenVLPlus, // 默认使用通义千问VL-Plus多模态模型
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Option 客户端配置选项函数类型
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// WithBaseURL 设置API基础URL
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// NewConfig 创建一个新的配置并应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Factory 转录客户端工厂函数类型
type Factory func(opts ...Option) (Client, error)

// 全局注册的转录客户端工厂函数
var clientFactories = make(map[string]Factory)

// RegisterClient 注册转录客户端工厂函数
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient 根据名称创建转录客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factory, exists := clientFactories[name]
	if !exists {
		return nil, NewOCRError(
			ErrCodeInvalidRequest,
			"ocr client type not registered: "+name)
	}
	return factory(opts...)
}
