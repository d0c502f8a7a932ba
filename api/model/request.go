package model

import (
	"mime/multipart"
	"time"
)

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// GetOffset 计算数据库查询偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// SubmissionUploadRequest 答卷上传请求
type SubmissionUploadRequest struct {
	File          *multipart.FileHeader `form:"file" binding:"required"`              // 答卷文件，PDF或页面图像
	QuestionKeyID string                `form:"question_key_id" binding:"required"`   // 标准答案ID
	StudentName   string                `form:"student_name" binding:"omitempty"`     // 学生姓名，可选
	Wait          bool                  `form:"wait" json:"wait" binding:"omitempty"` // 是否同步等待处理完成
}

// SubmissionIDRequest 答卷路径参数
type SubmissionIDRequest struct {
	ID string `uri:"id" binding:"required"` // 答卷ID
}

// SubmissionListRequest 答卷列表请求
type SubmissionListRequest struct {
	PaginationRequest
	Status        string     `form:"status" json:"status" binding:"omitempty"`                   // 按状态过滤
	QuestionKeyID string     `form:"question_key_id" json:"question_key_id" binding:"omitempty"` // 按标准答案过滤
	StartTime     *time.Time `form:"start_time" json:"start_time" binding:"omitempty"`           // 开始时间
	EndTime       *time.Time `form:"end_time" json:"end_time" binding:"omitempty"`               // 结束时间
}

// QuestionKeyUploadRequest 标准答案上传请求
type QuestionKeyUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"`  // 标准答案文件
	Name string                `form:"name" binding:"omitempty"` // 标准答案名称，默认为文件名
}

// QuestionKeyIDRequest 标准答案路径参数
type QuestionKeyIDRequest struct {
	ID string `uri:"id" binding:"required"` // 标准答案ID
}

// QuestionKeyListRequest 标准答案列表请求
type QuestionKeyListRequest struct {
	PaginationRequest
}
