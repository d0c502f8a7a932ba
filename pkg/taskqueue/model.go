package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskTranscribePage 单页答卷转写任务
	TaskTranscribePage TaskType = "transcribe_page"
	// TaskGradeSubmission 答卷评分任务
	TaskGradeSubmission TaskType = "grade_submission"
	// TaskProcessSubmission 答卷处理完整流程任务
	TaskProcessSubmission TaskType = "process_submission"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID           string          `json:"id"`            // 任务唯一标识符
	Type         TaskType        `json:"type"`          // 任务类型
	SubmissionID string          `json:"submission_id"` // 关联的答卷ID
	Status       TaskStatus      `json:"status"`        // 任务状态
	Payload      json.RawMessage `json:"payload"`       // 任务载荷数据，不同任务类型对应不同结构
	Result       json.RawMessage `json:"result"`        // 任务结果数据，不同任务类型对应不同结构
	Error        string          `json:"error"`         // 错误信息（如果处理失败）
	CreatedAt    time.Time       `json:"created_at"`    // 创建时间
	UpdatedAt    time.Time       `json:"updated_at"`    // 更新时间
	StartedAt    *time.Time      `json:"started_at"`    // 开始处理时间
	CompletedAt  *time.Time      `json:"completed_at"`  // 完成时间
	Attempts     int             `json:"attempts"`      // 尝试次数
	MaxRetries   int             `json:"max_retries"`   // 最大重试次数
}

// TranscribePagePayload 单页转写任务载荷
type TranscribePagePayload struct {
	SubmissionID string `json:"submission_id"` // 答卷ID
	PageIndex    int    `json:"page_index"`    // 页索引（从0开始）
	PageCount    int    `json:"page_count"`    // 答卷总页数
	ImagePath    string `json:"image_path"`    // 页图像的存储路径
	MimeType     string `json:"mime_type"`     // 页图像MIME类型
	Subject      string `json:"subject"`       // 科目，用于选择转写提示词
}

// TranscribePageResult 单页转写任务结果
type TranscribePageResult struct {
	SubmissionID string `json:"submission_id"` // 答卷ID
	PageIndex    int    `json:"page_index"`    // 页索引
	Text         string `json:"text"`          // 转写出的文本
	Chars        int    `json:"chars"`         // 字符数
	Error        string `json:"error"`         // 错误信息（如果有）
}

// GradeSubmissionPayload 评分任务载荷
// 转写结果已持久化，评分任务只需要答卷和标准答案的ID
type GradeSubmissionPayload struct {
	SubmissionID  string `json:"submission_id"`   // 答卷ID
	QuestionKeyID string `json:"question_key_id"` // 标准答案ID
}

// GradeSubmissionResult 评分任务结果
type GradeSubmissionResult struct {
	SubmissionID    string `json:"submission_id"`    // 答卷ID
	TotalScore      int    `json:"total_score"`      // 总得分
	MaxScore        int    `json:"max_score"`        // 满分
	EvaluationCount int    `json:"evaluation_count"` // 评分条目数量
	Error           string `json:"error"`            // 错误信息（如果有）
}

// ProcessSubmissionPayload 完整处理流程任务载荷
type ProcessSubmissionPayload struct {
	SubmissionID  string `json:"submission_id"`   // 答卷ID
	FilePath      string `json:"file_path"`       // 答卷文件存储路径
	FileName      string `json:"file_name"`       // 文件名
	FileType      string `json:"file_type"`       // 文件类型
	QuestionKeyID string `json:"question_key_id"` // 标准答案ID
	Subject       string `json:"subject"`         // 科目
}

// ProcessSubmissionResult 完整处理流程结果
type ProcessSubmissionResult struct {
	SubmissionID     string `json:"submission_id"`     // 答卷ID
	PageCount        int    `json:"page_count"`        // 答卷页数
	AnswerCount      int    `json:"answer_count"`      // 切分出的答案数量
	TotalScore       int    `json:"total_score"`       // 总得分
	MaxScore         int    `json:"max_score"`         // 满分
	TranscribeStatus string `json:"transcribe_status"` // 转写阶段状态
	GradeStatus      string `json:"grade_status"`      // 评分阶段状态
	Error            string `json:"error"`             // 错误信息（如果有）
}
