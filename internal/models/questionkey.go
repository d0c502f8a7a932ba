package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionKey 标准答案数据模型
// 记录出卷人上传并解析后的题目标准答案集
type QuestionKey struct {
	ID            string         `gorm:"primaryKey"`         // 标准答案ID，主键
	Name          string         `gorm:"not null"`           // 名称（通常为文件名）
	Subject       string         `gorm:"size:50;index"`      // 检测出的科目
	FileName      string         `gorm:"not null"`           // 源文件名
	FilePath      string         `gorm:"not null"`           // 源文件路径
	QuestionCount int            `gorm:"not null;default:0"` // 题目数
	TotalMarks    int            `gorm:"not null;default:0"` // 总分
	Questions     datatypes.JSON `gorm:"type:json"`          // 结构化题目集，JSON格式
	CreatedAt     time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt     time.Time      `gorm:"not null"`           // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (k *QuestionKey) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if k.CreatedAt.IsZero() {
		k.CreatedAt = now
	}
	k.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (k *QuestionKey) BeforeUpdate(tx *gorm.DB) (err error) {
	k.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (QuestionKey) TableName() string {
	return "question_keys"
}
