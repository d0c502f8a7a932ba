package grading

// Message 对话消息结构
type Message struct {
	Role    string `json:"role"`    // 角色
	Content string `json:"content"` // 内容
}

// TongyiRequest 通义千问请求结构
type TongyiRequest struct {
	Model      string            `json:"model"`                // 模型名称
	Input      *TongyiInput      `json:"input"`                // 输入内容
	Parameters *TongyiParameters `json:"parameters,omitempty"` // 可选参数
}

// TongyiInput 请求输入内容
type TongyiInput struct {
	Messages []Message `json:"messages"` // 消息列表
}

// TongyiParameters 请求参数
type TongyiParameters struct {
	Temperature  *float32 `json:"temperature,omitempty"`   // 采样温度
	MaxTokens    *int     `json:"max_tokens,omitempty"`    // 最大生成Token数
	ResultFormat string   `json:"result_format,omitempty"` // 返回格式
}

// TongyiResponse 通义千问响应结构
type TongyiResponse struct {
	StatusCode int          `json:"status_code"` // 状态码
	RequestID  string       `json:"request_id"`  // 请求ID
	Code       string       `json:"code"`        // 错误码(如果有)
	Message    string       `json:"message"`     // 错误消息(如果有)
	Output     TongyiOutput `json:"output"`      // 输出结果
	Usage      TongyiUsage  `json:"usage"`       // 资源使用情况
}

// TongyiOutput 输出结构
type TongyiOutput struct {
	Text    *string        `json:"text"`    // 文本输出(result_format为text时)
	Choices []TongyiChoice `json:"choices"` // 选择列表(result_format为message时)
}

// TongyiChoice 输出选择
type TongyiChoice struct {
	FinishReason string  `json:"finish_reason"` // 结束原因
	Message      Message `json:"message"`       // 消息内容
}

// TongyiUsage 资源使用情况
type TongyiUsage struct {
	InputTokens  int `json:"input_tokens"`  // 输入token数
	OutputTokens int `json:"output_tokens"` // 输出token数
	TotalTokens  int `json:"total_tokens"`  // 总token数
}

// Model 常用模型名称
const (
	ModelQwenTurbo = "qwen-turbo" // 通义千问-Turbo模型
	ModelQwenPlus  = "qwen-plus"  // 通义千问-Plus模型
	ModelQwenMax   = "qwen-max"   // 通义千问-Max模型
)

// Evaluation 单题评估结果
type Evaluation struct {
	QuestionNumber string `json:"question_number"` // 题号，如 "Q1"
	Question       string `json:"question"`        // 题干
	Assessment     string `json:"assessment"`      // 评语
	Correct        bool   `json:"correct"`         // 是否判对
	Score          int    `json:"score"`           // 得分
	MaxScore       int    `json:"max_score"`       // 满分
}

// Result 整卷评估结果
type Result struct {
	Evaluations []Evaluation `json:"evaluations"` // 按题号顺序的单题评估
	TotalScore  int          `json:"total_score"` // 总得分
	MaxScore    int          `json:"max_score"`   // 总满分
}
