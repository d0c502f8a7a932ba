package model

import (
	"time"

	"github.com/fyerfyer/exam-grading-system/internal/grading"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// SubmissionUploadResponse 答卷上传响应
type SubmissionUploadResponse struct {
	SubmissionID string `json:"submission_id"`     // 答卷ID
	FileName     string `json:"filename"`          // 文件名
	Status       string `json:"status"`            // 答卷状态：uploaded、processing、completed、failed
	TaskID       string `json:"task_id,omitempty"` // 异步处理任务ID
}

// SubmissionStatusResponse 答卷状态查询响应
type SubmissionStatusResponse struct {
	SubmissionID string `json:"submission_id"`   // 答卷ID
	Status       string `json:"status"`          // 处理状态
	Stage        string `json:"stage,omitempty"` // 当前处理阶段
	FileName     string `json:"filename"`        // 文件名
	PageCount    int    `json:"page_count"`      // 页数
	Error        string `json:"error,omitempty"` // 错误信息（如果有）
	CreatedAt    string `json:"created_at"`      // 上传时间
	UpdatedAt    string `json:"updated_at"`      // 更新时间
}

// SubmissionInfo 答卷信息
type SubmissionInfo struct {
	SubmissionID  string    `json:"submission_id"`   // 答卷ID
	StudentName   string    `json:"student_name"`    // 学生姓名
	QuestionKeyID string    `json:"question_key_id"` // 标准答案ID
	FileName      string    `json:"filename"`        // 文件名
	Status        string    `json:"status"`          // 状态
	TotalScore    int       `json:"total_score"`     // 得分
	MaxScore      int       `json:"max_score"`       // 满分
	UploadTime    time.Time `json:"upload_time"`     // 上传时间
}

// SubmissionListResponse 答卷列表响应
type SubmissionListResponse struct {
	Total       int64            `json:"total"`       // 总数量
	Page        int              `json:"page"`        // 当前页码
	PageSize    int              `json:"page_size"`   // 每页大小
	Submissions []SubmissionInfo `json:"submissions"` // 答卷列表
}

// SubmissionRegradeResponse 重新评卷响应
type SubmissionRegradeResponse struct {
	SubmissionID string `json:"submission_id"` // 答卷ID
	Status       string `json:"status"`        // 重评后的答卷状态
}

// SubmissionDeleteResponse 答卷删除响应
type SubmissionDeleteResponse struct {
	Success      bool   `json:"success"`       // 是否成功
	SubmissionID string `json:"submission_id"` // 答卷ID
}

// SubmissionResultResponse 评卷结果响应
type SubmissionResultResponse struct {
	SubmissionID string               `json:"submission_id"` // 答卷ID
	Subject      string               `json:"subject"`       // 科目
	TotalScore   int                  `json:"total_score"`   // 得分
	MaxScore     int                  `json:"max_score"`     // 满分
	Percentage   float64              `json:"percentage"`    // 得分率
	Summary      string               `json:"summary"`       // 成绩摘要
	Evaluations  []grading.Evaluation `json:"evaluations"`   // 每题评估明细
}

// AnalyticsResponse 答卷统计响应
type AnalyticsResponse struct {
	Total             int64            `json:"total"`              // 答卷总数
	ByStatus          map[string]int64 `json:"by_status"`          // 各状态的答卷数
	AveragePercentage float64          `json:"average_percentage"` // 已完成答卷的平均得分率
}

// QuestionKeyUploadResponse 标准答案上传响应
type QuestionKeyUploadResponse struct {
	QuestionKeyID string `json:"question_key_id"` // 标准答案ID
	Name          string `json:"name"`            // 名称
	Subject       string `json:"subject"`         // 识别出的科目
	QuestionCount int    `json:"question_count"`  // 题目数量
	TotalMarks    int    `json:"total_marks"`     // 总分
}

// QuestionKeyInfo 标准答案信息
type QuestionKeyInfo struct {
	QuestionKeyID string    `json:"question_key_id"` // 标准答案ID
	Name          string    `json:"name"`            // 名称
	Subject       string    `json:"subject"`         // 科目
	FileName      string    `json:"filename"`        // 文件名
	QuestionCount int       `json:"question_count"`  // 题目数量
	TotalMarks    int       `json:"total_marks"`     // 总分
	CreatedAt     time.Time `json:"created_at"`      // 创建时间
}

// QuestionKeyListResponse 标准答案列表响应
type QuestionKeyListResponse struct {
	Total    int64             `json:"total"`     // 总数量
	Page     int               `json:"page"`      // 当前页码
	PageSize int               `json:"page_size"` // 每页大小
	Keys     []QuestionKeyInfo `json:"keys"`      // 标准答案列表
}

// QuestionKeyDeleteResponse 标准答案删除响应
type QuestionKeyDeleteResponse struct {
	Success       bool   `json:"success"`         // 是否成功
	QuestionKeyID string `json:"question_key_id"` // 标准答案ID
}
