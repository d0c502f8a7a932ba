package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fyerfyer/exam-grading-system/internal/database"
	"github.com/fyerfyer/exam-grading-system/internal/models"
)

// submissionRepository 答卷仓储实现
type submissionRepository struct {
	db *gorm.DB // 数据库连接
}

// NewSubmissionRepository 创建答卷仓储实例
func NewSubmissionRepository() SubmissionRepository {
	return &submissionRepository{
		db: database.MustDB(),
	}
}

// NewSubmissionRepositoryWithDB 使用指定的数据库连接创建答卷仓储实例
func NewSubmissionRepositoryWithDB(db *gorm.DB) SubmissionRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &submissionRepository{db: db}
}

// Create 创建答卷记录
func (r *submissionRepository) Create(sub *models.Submission) error {
	if sub.ID == "" {
		return errors.New("submission ID cannot be empty")
	}

	return r.db.Create(sub).Error
}

// Update 更新答卷记录
func (r *submissionRepository) Update(sub *models.Submission) error {
	if sub.ID == "" {
		return errors.New("submission ID cannot be empty")
	}

	return r.db.Save(sub).Error
}

// GetByID 根据ID获取答卷
func (r *submissionRepository) GetByID(id string) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// List 列出答卷列表，支持分页和筛选
func (r *submissionRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.Submission, int64, error) {
	var subs []*models.Submission
	var total int64

	query := r.db.Model(&models.Submission{})

	if filters != nil {
		// 状态过滤
		if status, ok := filters["status"]; ok {
			switch s := status.(type) {
			case models.SubmissionStatus:
				query = query.Where("status = ?", string(s))
			case string:
				if s != "" {
					query = query.Where("status = ?", s)
				}
			}
		}

		// 标准答案过滤
		if keyID, ok := filters["question_key_id"].(string); ok && keyID != "" {
			query = query.Where("question_key_id = ?", keyID)
		}

		// 时间范围过滤
		if startTime, ok := filters["start_time"].(string); ok && startTime != "" {
			query = query.Where("uploaded_at >= ?", startTime)
		}
		if endTime, ok := filters["end_time"].(string); ok && endTime != "" {
			query = query.Where("uploaded_at <= ?", endTime)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("uploaded_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// Delete 删除答卷及其关联数据
func (r *submissionRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// 先删除关联的页和评估结果
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionPage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionEvaluation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionTask{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&models.Submission{}).Error
	})
}

// UpdateStatus 更新答卷状态
func (r *submissionRepository) UpdateStatus(id string, status models.SubmissionStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}

	if errorMsg != "" {
		updates["error"] = errorMsg
	}

	// 状态进入终态时记录处理完成时间
	if status == models.SubStatusCompleted || status == models.SubStatusFailed {
		now := time.Now()
		updates["processed_at"] = &now
	}

	return r.db.Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStage 更新答卷处理阶段
func (r *submissionRepository) UpdateStage(id string, stage models.ProcessStage) error {
	return r.db.Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stage": stage,
			"updated_at":    time.Now(),
		}).Error
}

// SavePage 保存答卷页转写结果
func (r *submissionRepository) SavePage(page *models.SubmissionPage) error {
	return r.db.Create(page).Error
}

// GetPages 获取答卷的所有页，按页号升序
func (r *submissionRepository) GetPages(submissionID string) ([]*models.SubmissionPage, error) {
	var pages []*models.SubmissionPage
	err := r.db.Where("submission_id = ?", submissionID).
		Order("page_index ASC").
		Find(&pages).Error
	return pages, err
}

// SaveEvaluations 批量保存单题评估结果
func (r *submissionRepository) SaveEvaluations(evals []*models.SubmissionEvaluation) error {
	if len(evals) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		// 重评或任务重试时覆盖旧的评估结果
		if err := tx.Where("submission_id = ?", evals[0].SubmissionID).
			Delete(&models.SubmissionEvaluation{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(evals, 100).Error
	})
}

// GetEvaluations 获取答卷的所有评估结果
func (r *submissionRepository) GetEvaluations(submissionID string) ([]*models.SubmissionEvaluation, error) {
	var evals []*models.SubmissionEvaluation
	err := r.db.Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&evals).Error
	return evals, err
}

// Stats 获取答卷统计汇总
func (r *submissionRepository) Stats() (*SubmissionStats, error) {
	stats := &SubmissionStats{
		ByStatus: make(map[models.SubmissionStatus]int64),
	}

	// 按状态分组统计
	type statusCount struct {
		Status models.SubmissionStatus
		Count  int64
	}
	var counts []statusCount
	err := r.db.Model(&models.Submission{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}

	// 已完成答卷的平均得分率
	var avg *float64
	err = r.db.Model(&models.Submission{}).
		Select("avg(total_score * 100.0 / max_score)").
		Where("status = ? AND max_score > 0", models.SubStatusCompleted).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AveragePercentage = *avg
	}

	return stats, nil
}

// questionKeyRepository 标准答案仓储实现
type questionKeyRepository struct {
	db *gorm.DB
}

// NewQuestionKeyRepository 创建标准答案仓储实例
func NewQuestionKeyRepository() QuestionKeyRepository {
	return &questionKeyRepository{db: database.MustDB()}
}

// NewQuestionKeyRepositoryWithDB 使用指定的数据库连接创建标准答案仓储实例
func NewQuestionKeyRepositoryWithDB(db *gorm.DB) QuestionKeyRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &questionKeyRepository{db: db}
}

// Create 创建标准答案记录
func (r *questionKeyRepository) Create(key *models.QuestionKey) error {
	if key.ID == "" {
		return errors.New("question key ID cannot be empty")
	}

	return r.db.Create(key).Error
}

// GetByID 根据ID获取标准答案
func (r *questionKeyRepository) GetByID(id string) (*models.QuestionKey, error) {
	var key models.QuestionKey
	err := r.db.Where("id = ?", id).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrQuestionKeyNotFound
		}
		return nil, fmt.Errorf("failed to get question key: %w", err)
	}
	return &key, nil
}

// List 列出标准答案，支持分页
func (r *questionKeyRepository) List(offset, limit int) ([]*models.QuestionKey, int64, error) {
	var keys []*models.QuestionKey
	var total int64

	query := r.db.Model(&models.QuestionKey{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&keys).Error
	if err != nil {
		return nil, 0, err
	}

	return keys, total, nil
}

// Delete 删除标准答案
func (r *questionKeyRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.QuestionKey{}).Error
}
