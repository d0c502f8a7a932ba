package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionStatus 答卷处理状态类型
type SubmissionStatus string

const (
	// SubStatusUploaded 答卷已上传，等待处理
	SubStatusUploaded SubmissionStatus = "uploaded"
	// SubStatusProcessing 答卷处理中
	SubStatusProcessing SubmissionStatus = "processing"
	// SubStatusCompleted 答卷处理完成
	SubStatusCompleted SubmissionStatus = "completed"
	// SubStatusFailed 答卷处理失败
	SubStatusFailed SubmissionStatus = "failed"
)

// ProcessStage 答卷处理阶段
type ProcessStage string

const (
	// StageTranscribing 逐页转写阶段
	StageTranscribing ProcessStage = "transcribing"
	// StageSegmenting 答案切分阶段
	StageSegmenting ProcessStage = "segmenting"
	// StageGrading 评卷阶段
	StageGrading ProcessStage = "grading"
	// StageCompleted 处理完成
	StageCompleted ProcessStage = "completed"
)

// Submission 答卷数据模型
// 记录一次上传的答卷及其处理进展
type Submission struct {
	ID            string           `gorm:"primaryKey"`         // 答卷ID，主键
	StudentName   string           `gorm:"size:100"`           // 学生姓名（可选）
	QuestionKeyID string           `gorm:"not null;index"`     // 关联的标准答案ID
	FileName      string           `gorm:"not null"`           // 文件名
	FileType      string           `gorm:"not null"`           // 文件类型
	FilePath      string           `gorm:"not null"`           // 文件路径
	FileSize      int64            `gorm:"not null"`           // 文件大小（字节）
	Status        SubmissionStatus `gorm:"not null;index"`     // 处理状态
	CurrentStage  ProcessStage     `gorm:"size:20"`            // 当前处理阶段
	UploadedAt    time.Time        `gorm:"not null;index"`     // 上传时间
	ProcessedAt   *time.Time       `gorm:"index"`              // 处理完成时间
	UpdatedAt     time.Time        `gorm:"not null;index"`     // 更新时间
	PageCount     int              `gorm:"not null;default:0"` // 答卷页数
	Error         string           `gorm:"type:text"`          // 错误信息
	Answers       datatypes.JSON   `gorm:"type:json"`          // 切分出的答案映射，JSON格式
	TotalScore    int              `gorm:"not null;default:0"` // 总得分
	MaxScore      int              `gorm:"not null;default:0"` // 总满分
	CurrentTaskID string           `gorm:"size:50;index"`      // 当前关联的任务ID
	RetryCount    int              `gorm:"default:0"`          // 重试次数
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (s *Submission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.UploadedAt.IsZero() {
		s.UploadedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (s *Submission) BeforeUpdate(tx *gorm.DB) (err error) {
	s.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Submission) TableName() string {
	return "submissions"
}

// SubmissionPage 答卷页数据模型
// 跟踪单页的转写结果
type SubmissionPage struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`          // 主键ID
	SubmissionID string    `gorm:"not null;index"`                    // 所属答卷ID
	PageIndex    int       `gorm:"not null"`                          // 页号，从0开始
	Text         string    `gorm:"type:text"`                         // 转写文本
	Transcribed  bool      `gorm:"not null;default:false"`            // 是否转写成功
	CreatedAt    time.Time `gorm:"not null"`                          // 创建时间
	UpdatedAt    time.Time `gorm:"not null"`                          // 更新时间
	TaskID       string    `gorm:"size:50;index"`                     // 处理此页的任务ID
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (p *SubmissionPage) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (p *SubmissionPage) BeforeUpdate(tx *gorm.DB) (err error) {
	p.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (SubmissionPage) TableName() string {
	return "submission_pages"
}

// SubmissionEvaluation 单题评估数据模型
type SubmissionEvaluation struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"` // 主键ID
	SubmissionID   string    `gorm:"not null;index"`           // 所属答卷ID
	QuestionNumber string    `gorm:"not null;size:20"`         // 题号，如 "Q1"
	Question       string    `gorm:"type:text"`                // 题干
	Assessment     string    `gorm:"type:text"`                // 评语
	Correct        bool      `gorm:"not null;default:false"`   // 是否判对
	Score          int       `gorm:"not null;default:0"`       // 得分
	MaxScore       int       `gorm:"not null;default:1"`       // 满分
	CreatedAt      time.Time `gorm:"not null"`                 // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (e *SubmissionEvaluation) BeforeCreate(tx *gorm.DB) (err error) {
	e.CreatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (SubmissionEvaluation) TableName() string {
	return "submission_evaluations"
}

// SubmissionTask 答卷任务关联模型
// 用于跟踪答卷处理任务
type SubmissionTask struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	SubmissionID string         `gorm:"not null;index"`           // 答卷ID
	TaskID       string         `gorm:"not null;uniqueIndex"`     // 任务ID
	TaskType     string         `gorm:"not null;size:50"`         // 任务类型
	Status       string         `gorm:"not null;size:20"`         // 任务状态
	CreatedAt    time.Time      `gorm:"not null"`                 // 创建时间
	UpdatedAt    time.Time      `gorm:"not null"`                 // 更新时间
	StartedAt    *time.Time     `gorm:""`                         // 开始时间
	EndedAt      *time.Time     `gorm:""`                         // 结束时间
	Error        string         `gorm:"type:text"`                // 错误信息
	Result       datatypes.JSON `gorm:"type:json"`                // 任务结果
	Retries      int            `gorm:"default:0"`                // 重试次数
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (t *SubmissionTask) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (t *SubmissionTask) BeforeUpdate(tx *gorm.DB) (err error) {
	t.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (SubmissionTask) TableName() string {
	return "submission_tasks"
}
