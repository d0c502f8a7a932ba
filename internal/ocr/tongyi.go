package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// 通义千问多模态API端点
	defaultTongyiVLEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
)

// TongyiVLClient 通义千问多模态转录客户端实现
type TongyiVLClient struct {
	apiKey     string       // API密钥
	baseURL    string       // API端点
	model      string       // 模型名称
	httpClient *http.Client // HTTP客户端
	maxRetries int          // 最大重试次数
}

// NewTongyiVLClient 创建新的通义千问多模态转录客户端
func NewTongyiVLClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	// 验证API密钥
	if cfg.APIKey == "" {
		return nil, NewOCRError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTongyiVLEndpoint
	}

	return &TongyiVLClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name 返回模型名称
func (c *TongyiVLClient) Name() string {
	return c.model
}

// Transcribe 转写一页答卷图像
func (c *TongyiVLClient) Transcribe(ctx context.Context, image string, subject string) (string, error) {
	if image == "" {
		return "", NewOCRError(ErrCodeEmptyImage, ErrMsgEmptyImage)
	}

	req := &TongyiVLRequest{
		Model: c.model,
		Input: &TongyiVLInput{
			Messages: []VLMessage{
				{
					Role: "user",
					Content: []VLContent{
						{Image: image},
						{Text: PromptForSubject(subject)},
					},
				},
			},
		},
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return "", err
	}

	return c.extractText(resp)
}

// sendRequest 发送API请求并解析响应
func (c *TongyiVLClient) sendRequest(ctx context.Context, req *TongyiVLRequest) (*TongyiVLResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewOCRError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	// 使用重试机制发送请求
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避重试
			select {
			case <-ctx.Done():
				return nil, NewOCRError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		httpReq, reqErr := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL,
			bytes.NewBuffer(jsonData),
		)
		if reqErr != nil {
			return nil, NewOCRError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", reqErr))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
		httpReq.Header.Set("Accept", "application/json")

		resp, err = c.httpClient.Do(httpReq)
		if err == nil && resp.StatusCode < 500 {
			// 成功或客户端错误，不需要重试
			break
		}

		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
		}
	}

	if err != nil {
		return nil, NewOCRError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", lastErr))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewOCRError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewOCRError(ErrCodeRateLimited, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			return nil, NewOCRError(ErrCodeServerError,
				fmt.Sprintf("API error: %s (%s)", errResp.Message, errResp.Code))
		}
		return nil, NewOCRError(ErrCodeServerError,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var vlResp TongyiVLResponse
	if err := json.Unmarshal(body, &vlResp); err != nil {
		return nil, NewOCRError(ErrCodeServerError,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	if vlResp.Code != "" {
		return nil, NewOCRError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", vlResp.Message, vlResp.Code))
	}

	return &vlResp, nil
}

// extractText 从多模态响应中提取转写文本
func (c *TongyiVLClient) extractText(resp *TongyiVLResponse) (string, error) {
	if len(resp.Output.Choices) == 0 {
		return "", NewOCRError(ErrCodeServerError, "empty response from API")
	}

	for _, content := range resp.Output.Choices[0].Message.Content {
		if content.Text != "" {
			return content.Text, nil
		}
	}

	return "", NewOCRError(ErrCodeServerError, "no text content in response")
}

// 在包初始化时注册通义千问多模态客户端
func init() {
	RegisterClient("tongyi", NewTongyiVLClient)
}
