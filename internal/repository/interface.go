package repository

import "github.com/fyerfyer/exam-grading-system/internal/models"

// SubmissionRepository 答卷仓储接口
// 负责答卷元数据、页转写结果和评估结果的存储和检索
type SubmissionRepository interface {
	// Create 创建答卷记录
	Create(sub *models.Submission) error

	// Update 更新答卷记录
	Update(sub *models.Submission) error

	// GetByID 根据ID获取答卷
	GetByID(id string) (*models.Submission, error)

	// List 列出答卷列表，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.Submission, int64, error)

	// Delete 删除答卷及其关联数据
	Delete(id string) error

	// UpdateStatus 更新答卷状态
	UpdateStatus(id string, status models.SubmissionStatus, errorMsg string) error

	// UpdateStage 更新答卷处理阶段
	UpdateStage(id string, stage models.ProcessStage) error

	// SavePage 保存答卷页转写结果
	SavePage(page *models.SubmissionPage) error

	// GetPages 获取答卷的所有页，按页号升序
	GetPages(submissionID string) ([]*models.SubmissionPage, error)

	// SaveEvaluations 批量保存单题评估结果
	SaveEvaluations(evals []*models.SubmissionEvaluation) error

	// GetEvaluations 获取答卷的所有评估结果
	GetEvaluations(submissionID string) ([]*models.SubmissionEvaluation, error)

	// Stats 获取答卷统计汇总
	Stats() (*SubmissionStats, error)
}

// SubmissionStats 答卷统计汇总
type SubmissionStats struct {
	Total             int64                             // 答卷总数
	ByStatus          map[models.SubmissionStatus]int64 // 各状态的答卷数
	AveragePercentage float64                           // 已完成答卷的平均得分率
}

// QuestionKeyRepository 标准答案仓储接口
type QuestionKeyRepository interface {
	// Create 创建标准答案记录
	Create(key *models.QuestionKey) error

	// GetByID 根据ID获取标准答案
	GetByID(id string) (*models.QuestionKey, error)

	// List 列出标准答案，支持分页
	List(offset, limit int) ([]*models.QuestionKey, int64, error)

	// Delete 删除标准答案
	Delete(id string) error
}
