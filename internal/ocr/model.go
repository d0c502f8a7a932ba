package ocr

// VLContent 多模态消息的内容片段，图像和文本二选一
type VLContent struct {
	Image string `json:"image,omitempty"` // 图像URL或base64数据URI
	Text  string `json:"text,omitempty"`  // 文本内容
}

// VLMessage 多模态对话消息
type VLMessage struct {
	Role    string      `json:"role"`    // 角色
	Content []VLContent `json:"content"` // 内容片段列表
}

// TongyiVLRequest 通义千问VL请求结构
type TongyiVLRequest struct {
	Model      string              `json:"model"`                // 模型名称
	Input      *TongyiVLInput      `json:"input"`                // 输入内容
	Parameters *TongyiVLParameters `json:"parameters,omitempty"` // 可选参数
}

// TongyiVLInput 请求输入内容
type TongyiVLInput struct {
	Messages []VLMessage `json:"messages"` // 消息列表
}

// TongyiVLParameters 请求参数
type TongyiVLParameters struct {
	TopP *float32 `json:"top_p,omitempty"` // 核采样概率阈值
	TopK *int     `json:"top_k,omitempty"` // 生成候选集大小
	Seed *int     `json:"seed,omitempty"`  // 随机数种子
}

// TongyiVLResponse 通义千问VL响应结构
type TongyiVLResponse struct {
	StatusCode int            `json:"status_code"` // 状态码
	RequestID  string         `json:"request_id"`  // 请求ID
	Code       string         `json:"code"`        // 错误码(如果有)
	Message    string         `json:"message"`     // 错误消息(如果有)
	Output     TongyiVLOutput `json:"output"`      // 输出结果
	Usage      TongyiVLUsage  `json:"usage"`       // 资源使用情况
}

// TongyiVLOutput 输出结构
type TongyiVLOutput struct {
	Choices []TongyiVLChoice `json:"choices"` // 选择列表
}

// TongyiVLChoice 输出选择
type TongyiVLChoice struct {
	FinishReason string    `json:"finish_reason"` // 结束原因
	Message      VLMessage `json:"message"`       // 消息内容
}

// TongyiVLUsage 资源使用情况
type TongyiVLUsage struct {
	InputTokens  int `json:"input_tokens"`  // 输入token数
	OutputTokens int `json:"output_tokens"` // 输出token数
	ImageTokens  int `json:"image_tokens"`  // 图像token数
}

// Model 常用多模态模型名称
const (
	ModelQwenVLPlus = "qwen-vl-plus" // 通义千问VL-Plus模型
	ModelQwenVLMax  = "qwen-vl-max"  // 通义千问VL-Max模型
)
