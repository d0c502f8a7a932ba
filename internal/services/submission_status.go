package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/repository"
	"github.com/sirupsen/logrus"
)

// SubmissionStatusManager 答卷状态管理器
// 负责管理答卷处理的生命周期状态
type SubmissionStatusManager struct {
	repo   repository.SubmissionRepository // 答卷仓储接口
	logger *logrus.Logger                  // 日志记录器
	mu     sync.Mutex                      // 互斥锁，保证状态转换的原子性
}

// NewSubmissionStatusManager 创建答卷状态管理器
func NewSubmissionStatusManager(repo repository.SubmissionRepository, logger *logrus.Logger) *SubmissionStatusManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &SubmissionStatusManager{
		repo:   repo,
		logger: logger,
	}
}

// MarkAsUploaded 将答卷标记为已上传状态
func (m *SubmissionStatusManager) MarkAsUploaded(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"filename":      sub.FileName,
	}).Info("Marking submission as uploaded")

	sub.Status = models.SubStatusUploaded
	if sub.UploadedAt.IsZero() {
		sub.UploadedAt = time.Now()
	}

	return m.repo.Create(sub)
}

// MarkAsProcessing 将答卷标记为处理中状态
func (m *SubmissionStatusManager) MarkAsProcessing(ctx context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	// 检查状态转换的有效性，失败的答卷允许重试
	if sub.Status != models.SubStatusUploaded && sub.Status != models.SubStatusFailed {
		return fmt.Errorf("invalid state transition: submission %s is in %s state, expected %s",
			submissionID, sub.Status, models.SubStatusUploaded)
	}

	m.logger.WithField("submission_id", submissionID).Info("Marking submission as processing")

	return m.repo.UpdateStatus(submissionID, models.SubStatusProcessing, "")
}

// MarkStage 更新答卷当前处理阶段
func (m *SubmissionStatusManager) MarkStage(ctx context.Context, submissionID string, stage models.ProcessStage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"stage":         stage,
	}).Debug("Updating submission stage")

	return m.repo.UpdateStage(submissionID, stage)
}

// MarkAsCompleted 将答卷标记为处理完成状态并记录成绩
func (m *SubmissionStatusManager) MarkAsCompleted(ctx context.Context, submissionID string, totalScore, maxScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	// uploaded/processing为正常完成路径；completed/failed经重评再次完成
	m.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"total_score":   totalScore,
		"max_score":     maxScore,
	}).Info("Marking submission as completed")

	if err := m.repo.UpdateStatus(submissionID, models.SubStatusCompleted, ""); err != nil {
		return err
	}

	sub.Status = models.SubStatusCompleted
	sub.CurrentStage = models.StageCompleted
	sub.TotalScore = totalScore
	sub.MaxScore = maxScore
	return m.repo.Update(sub)
}

// MarkAsFailed 将答卷标记为处理失败状态
func (m *SubmissionStatusManager) MarkAsFailed(ctx context.Context, submissionID string, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"error":         errorMsg,
	}).Error("Marking submission as failed")

	return m.repo.UpdateStatus(submissionID, models.SubStatusFailed, errorMsg)
}

// GetStatus 获取答卷当前状态
func (m *SubmissionStatusManager) GetStatus(ctx context.Context, submissionID string) (models.SubmissionStatus, error) {
	sub, err := m.repo.GetByID(submissionID)
	if err != nil {
		return "", fmt.Errorf("failed to get submission status: %w", err)
	}
	return sub.Status, nil
}

// GetSubmission 获取完整的答卷对象
func (m *SubmissionStatusManager) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	return m.repo.GetByID(submissionID)
}

// ListSubmissions 获取答卷列表
func (m *SubmissionStatusManager) ListSubmissions(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Submission, int64, error) {
	return m.repo.List(offset, limit, filters)
}

// DeleteSubmission 删除答卷状态记录
func (m *SubmissionStatusManager) DeleteSubmission(ctx context.Context, submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithField("submission_id", submissionID).Info("Deleting submission record")
	return m.repo.Delete(submissionID)
}

// ValidateStateTransition 验证状态转换的有效性
func (m *SubmissionStatusManager) ValidateStateTransition(from, to models.SubmissionStatus) error {
	// 定义有效的状态转换
	validTransitions := map[models.SubmissionStatus][]models.SubmissionStatus{
		models.SubStatusUploaded: {
			models.SubStatusProcessing,
			models.SubStatusCompleted, // 单页答卷可能直接完成
			models.SubStatusFailed,    // 上传后可能立即失败
		},
		models.SubStatusProcessing: {
			models.SubStatusCompleted,
			models.SubStatusFailed,
		},
		// completed可经重评再次完成；failed允许重试或直接重评
		models.SubStatusCompleted: {models.SubStatusCompleted},
		models.SubStatusFailed: {
			models.SubStatusProcessing,
			models.SubStatusCompleted,
		},
	}

	allowed := false
	for _, validTo := range validTransitions[from] {
		if validTo == to {
			allowed = true
			break
		}
	}

	if !allowed {
		return errors.New("invalid state transition")
	}

	return nil
}

// getFileType 根据文件名获取文件类型
func getFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return strings.TrimPrefix(ext, ".")
}
