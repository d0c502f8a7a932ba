package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/questionkey"
	"github.com/fyerfyer/exam-grading-system/internal/repository"
	"github.com/fyerfyer/exam-grading-system/pkg/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// QuestionKeyService 标准答案服务
// 负责标准答案文件的上传、解析和管理
type QuestionKeyService struct {
	storage storage.Storage                  // 文件存储服务
	repo    repository.QuestionKeyRepository // 标准答案仓储
	logger  *logrus.Logger                   // 日志记录器
}

// NewQuestionKeyService 创建标准答案服务
func NewQuestionKeyService(store storage.Storage, repo repository.QuestionKeyRepository, logger *logrus.Logger) *QuestionKeyService {
	if logger == nil {
		logger = logrus.New()
	}

	return &QuestionKeyService{
		storage: store,
		repo:    repo,
		logger:  logger,
	}
}

// UploadKey 上传并解析标准答案文件
// 支持PDF、DOCX、Markdown和纯文本格式
func (s *QuestionKeyService) UploadKey(ctx context.Context, reader io.Reader, filename string, name string) (*models.QuestionKey, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}
	if name == "" {
		name = filename
	}

	// 格式校验提前到保存之前，避免存入无法解析的文件
	parser, err := questionkey.ParserFactory(filename)
	if err != nil {
		return nil, fmt.Errorf("unsupported question key format: %w", err)
	}

	info, err := s.storage.Save(reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save question key file: %w", err)
	}

	fileReader, err := s.storage.GetByPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question key file: %w", err)
	}
	defer fileReader.Close()

	text, err := parser.ParseReader(fileReader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse question key file: %w", err)
	}

	key := questionkey.ParseKeyText(text)
	if len(key.Questions) == 0 {
		return nil, errors.New("no questions found in key file")
	}

	keyJSON, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal question key: %w", err)
	}

	keyModel := &models.QuestionKey{
		ID:            info.ID,
		Name:          name,
		Subject:       key.Subject,
		FileName:      filename,
		FilePath:      info.Path,
		QuestionCount: len(key.Questions),
		TotalMarks:    key.TotalMarks(),
		Questions:     datatypes.JSON(keyJSON),
	}

	if err := s.repo.Create(keyModel); err != nil {
		return nil, fmt.Errorf("failed to save question key record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"question_key_id": keyModel.ID,
		"subject":         key.Subject,
		"question_count":  keyModel.QuestionCount,
		"total_marks":     keyModel.TotalMarks,
	}).Info("Question key uploaded successfully")

	return keyModel, nil
}

// GetKey 获取标准答案记录
func (s *QuestionKeyService) GetKey(ctx context.Context, id string) (*models.QuestionKey, error) {
	return s.repo.GetByID(id)
}

// GetParsedKey 获取还原为结构化题目集的标准答案
func (s *QuestionKeyService) GetParsedKey(ctx context.Context, id string) (*questionkey.Key, error) {
	keyModel, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	var key questionkey.Key
	if err := json.Unmarshal(keyModel.Questions, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question key: %w", err)
	}
	key.RebuildOrder()

	return &key, nil
}

// ListKeys 获取标准答案列表
func (s *QuestionKeyService) ListKeys(ctx context.Context, offset, limit int) ([]*models.QuestionKey, int64, error) {
	return s.repo.List(offset, limit)
}

// DeleteKey 删除标准答案及其源文件
func (s *QuestionKeyService) DeleteKey(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	// 文件可能已被删除，记录错误但不中断流程
	if err := s.storage.Delete(id); err != nil {
		s.logger.WithError(err).Warn("Failed to delete question key file from storage")
	}

	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete question key record: %w", err)
	}

	s.logger.WithField("question_key_id", id).Info("Question key deleted successfully")
	return nil
}
