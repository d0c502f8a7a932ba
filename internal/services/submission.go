package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fyerfyer/exam-grading-system/internal/cache"
	"github.com/fyerfyer/exam-grading-system/internal/grading"
	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/ocr"
	"github.com/fyerfyer/exam-grading-system/internal/pages"
	"github.com/fyerfyer/exam-grading-system/internal/questionkey"
	"github.com/fyerfyer/exam-grading-system/internal/report"
	"github.com/fyerfyer/exam-grading-system/internal/repository"
	"github.com/fyerfyer/exam-grading-system/internal/segment"
	"github.com/fyerfyer/exam-grading-system/pkg/storage"
	"github.com/fyerfyer/exam-grading-system/pkg/taskqueue"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// SubmissionService 答卷服务
// 负责协调答卷的上传、逐页转写、答案切分和评卷
type SubmissionService struct {
	storage        storage.Storage                  // 文件存储服务
	transcriber    ocr.Client                       // 页转写客户端
	segmenter      *segment.Segmenter               // 答案切分器
	judge          *grading.Judge                   // 评卷器
	repo           repository.SubmissionRepository  // 答卷元数据存储
	keyRepo        repository.QuestionKeyRepository // 标准答案存储
	statusManager  *SubmissionStatusManager         // 答卷状态管理器
	taskQueue      taskqueue.Queue                  // 任务队列
	resultCache    cache.Cache                      // 评卷报告缓存
	cacheTTL       time.Duration                    // 报告缓存有效期
	asyncEnabled   bool                             // 是否启用异步处理
	maxConcurrency int                              // 页转写并发数
	timeout        time.Duration                    // 处理超时时间
	logger         *logrus.Logger                   // 日志记录器
}

// SubmissionOption 答卷服务配置选项
type SubmissionOption func(*SubmissionService)

// NewSubmissionService 创建一个新的答卷服务
func NewSubmissionService(
	storage storage.Storage,
	transcriber ocr.Client,
	segmenter *segment.Segmenter,
	judge *grading.Judge,
	keyRepo repository.QuestionKeyRepository,
	opts ...SubmissionOption,
) *SubmissionService {
	srv := &SubmissionService{
		storage:        storage,
		transcriber:    transcriber,
		segmenter:      segmenter,
		judge:          judge,
		keyRepo:        keyRepo,
		maxConcurrency: 4,                // 默认页转写并发数
		timeout:        time.Minute * 10, // 默认超时时间
		cacheTTL:       time.Hour * 24,   // 默认报告缓存有效期
		logger:         logrus.New(),     // 默认日志记录器
		asyncEnabled:   false,            // 默认不启用异步处理
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithMaxConcurrency 设置页转写并发数
func WithMaxConcurrency(n int) SubmissionOption {
	return func(s *SubmissionService) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithTimeout 设置处理超时时间
func WithTimeout(timeout time.Duration) SubmissionOption {
	return func(s *SubmissionService) {
		s.timeout = timeout
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) SubmissionOption {
	return func(s *SubmissionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSubmissionRepository 设置答卷仓储
func WithSubmissionRepository(repo repository.SubmissionRepository) SubmissionOption {
	return func(s *SubmissionService) {
		s.repo = repo
	}
}

// WithStatusManager 设置状态管理器
func WithStatusManager(manager *SubmissionStatusManager) SubmissionOption {
	return func(s *SubmissionService) {
		s.statusManager = manager
	}
}

// WithTaskQueue 设置任务队列
func WithTaskQueue(queue taskqueue.Queue) SubmissionOption {
	return func(s *SubmissionService) {
		s.taskQueue = queue
		s.asyncEnabled = queue != nil
	}
}

// WithAsyncProcessing 设置是否启用异步处理
func WithAsyncProcessing(enabled bool) SubmissionOption {
	return func(s *SubmissionService) {
		s.asyncEnabled = enabled
	}
}

// WithResultCache 设置评卷报告缓存
func WithResultCache(c cache.Cache) SubmissionOption {
	return func(s *SubmissionService) {
		s.resultCache = c
	}
}

// WithCacheTTL 设置报告缓存有效期
func WithCacheTTL(ttl time.Duration) SubmissionOption {
	return func(s *SubmissionService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// Init 初始化答卷服务
// 确保必要的依赖都已设置
func (s *SubmissionService) Init() error {
	if s.repo == nil {
		s.repo = repository.NewSubmissionRepository()
	}

	if s.statusManager == nil {
		s.statusManager = NewSubmissionStatusManager(s.repo, s.logger)
	}

	return nil
}

// UploadSubmission 上传一份答卷
// 校验标准答案存在后保存文件并创建答卷记录，处理由ProcessSubmission触发
func (s *SubmissionService) UploadSubmission(ctx context.Context, reader io.Reader, filename string, questionKeyID string, studentName string) (*models.Submission, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	if questionKeyID == "" {
		return nil, errors.New("questionKeyID cannot be empty")
	}

	// 校验标准答案存在
	if _, err := s.keyRepo.GetByID(questionKeyID); err != nil {
		return nil, fmt.Errorf("failed to get question key: %w", err)
	}

	info, err := s.storage.Save(reader, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission file: %w", err)
	}

	sub := &models.Submission{
		ID:            info.ID,
		StudentName:   studentName,
		QuestionKeyID: questionKeyID,
		FileName:      filename,
		FileType:      getFileType(filename),
		FilePath:      info.Path,
		FileSize:      info.Size,
	}

	if err := s.statusManager.MarkAsUploaded(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create submission record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id":   sub.ID,
		"question_key_id": questionKeyID,
		"filename":        filename,
	}).Info("Submission uploaded successfully")

	return sub, nil
}

// ProcessSubmission 处理答卷(转写、切分、评卷)
func (s *SubmissionService) ProcessSubmission(ctx context.Context, submissionID string) error {
	if err := s.Init(); err != nil {
		return err
	}

	if submissionID == "" {
		return errors.New("submissionID cannot be empty")
	}

	s.logger.WithField("submission_id", submissionID).Info("Starting submission processing")

	// 如果启用异步处理并且任务队列已配置，使用任务队列处理
	if s.asyncEnabled && s.taskQueue != nil {
		return s.processSubmissionAsync(ctx, submissionID)
	}

	return s.processSubmissionSync(ctx, submissionID)
}

// processSubmissionAsync 异步处理答卷
// 将任务加入队列并立即返回
func (s *SubmissionService) processSubmissionAsync(ctx context.Context, submissionID string) error {
	sub, err := s.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	key, err := s.keyRepo.GetByID(sub.QuestionKeyID)
	if err != nil {
		return fmt.Errorf("failed to get question key: %w", err)
	}

	payload := taskqueue.ProcessSubmissionPayload{
		SubmissionID:  sub.ID,
		FilePath:      sub.FilePath,
		FileName:      sub.FileName,
		FileType:      sub.FileType,
		QuestionKeyID: sub.QuestionKeyID,
		Subject:       key.Subject,
	}

	taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskProcessSubmission, sub.ID, payload)
	if err != nil {
		s.failSubmission(ctx, sub.ID, fmt.Sprintf("failed to enqueue processing task: %v", err))
		return fmt.Errorf("failed to enqueue processing task: %w", err)
	}

	// 记录当前任务ID便于查询进度
	sub.CurrentTaskID = taskID
	if err := s.repo.Update(sub); err != nil {
		s.logger.WithError(err).Warn("Failed to record current task id")
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"task_id":       taskID,
	}).Info("Submission processing task enqueued")

	return nil
}

// processSubmissionSync 同步处理答卷
// 在当前进程中完成转写、切分和评卷
func (s *SubmissionService) processSubmissionSync(ctx context.Context, submissionID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.statusManager.MarkAsProcessing(ctx, submissionID); err != nil {
		s.logger.WithError(err).Error("Failed to mark submission as processing")
		// 继续处理，不中断
	}

	sub, err := s.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	key, keyModel, err := s.loadKey(sub.QuestionKeyID)
	if err != nil {
		s.failSubmission(ctx, submissionID, fmt.Sprintf("failed to load question key: %v", err))
		return fmt.Errorf("failed to load question key: %w", err)
	}

	// 阶段一：逐页转写
	answers, pageCount, err := s.transcribeAndSegment(ctx, sub, keyModel.Subject)
	if err != nil {
		s.failSubmission(ctx, submissionID, fmt.Sprintf("failed to transcribe submission: %v", err))
		return fmt.Errorf("failed to transcribe submission: %w", err)
	}

	// 阶段二：评卷
	if err := s.statusManager.MarkStage(ctx, submissionID, models.StageGrading); err != nil {
		s.logger.WithError(err).Warn("Failed to update submission stage")
	}

	result, err := s.judge.Grade(ctx, key, answers)
	if err != nil {
		s.failSubmission(ctx, submissionID, fmt.Sprintf("failed to grade submission: %v", err))
		return fmt.Errorf("failed to grade submission: %w", err)
	}

	if err := s.saveGradingResult(ctx, sub, result); err != nil {
		s.failSubmission(ctx, submissionID, fmt.Sprintf("failed to save grading result: %v", err))
		return fmt.Errorf("failed to save grading result: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"page_count":    pageCount,
		"answer_count":  answers.Len(),
		"total_score":   result.TotalScore,
		"max_score":     result.MaxScore,
	}).Info("Submission processing completed successfully")

	return nil
}

// RegradeSubmission 基于已有的页转写结果重新评卷
// 标准答案修订或评分模型更换后无需重新转写，直接对持久化的转写重评；
// 启用异步处理时通过评分任务队列执行
func (s *SubmissionService) RegradeSubmission(ctx context.Context, submissionID string) error {
	if err := s.Init(); err != nil {
		return err
	}

	if submissionID == "" {
		return errors.New("submissionID cannot be empty")
	}

	sub, err := s.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	if s.asyncEnabled && s.taskQueue != nil {
		payload := taskqueue.GradeSubmissionPayload{
			SubmissionID:  sub.ID,
			QuestionKeyID: sub.QuestionKeyID,
		}

		taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskGradeSubmission, sub.ID, payload)
		if err != nil {
			return fmt.Errorf("failed to enqueue regrade task: %w", err)
		}

		sub.CurrentTaskID = taskID
		if err := s.repo.Update(sub); err != nil {
			s.logger.WithError(err).Warn("Failed to record current task id")
		}

		s.logger.WithFields(logrus.Fields{
			"submission_id": sub.ID,
			"task_id":       taskID,
		}).Info("Submission regrade task enqueued")

		return nil
	}

	_, err = s.gradeStoredPages(ctx, sub)
	return err
}

// transcribeAndSegment 逐页转写答卷并切分答案
// 返回切分后的答案映射和答卷页数
func (s *SubmissionService) transcribeAndSegment(ctx context.Context, sub *models.Submission, subject string) (*segment.AnswerMap, int, error) {
	if err := s.statusManager.MarkStage(ctx, sub.ID, models.StageTranscribing); err != nil {
		s.logger.WithError(err).Warn("Failed to update submission stage")
	}

	localPath, cleanup, err := s.localFilePath(sub.FilePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve submission file: %w", err)
	}
	defer cleanup()

	provider, err := pages.NewProvider(localPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create page provider: %w", err)
	}

	images, err := provider.PageImages(ctx, localPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to extract page images: %w", err)
	}

	pageTexts := s.transcribePages(ctx, sub.ID, images, subject)

	// 阶段二：答案切分
	if err := s.statusManager.MarkStage(ctx, sub.ID, models.StageSegmenting); err != nil {
		s.logger.WithError(err).Warn("Failed to update submission stage")
	}

	answers, err := s.segmenter.SegmentPages(pageTexts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to segment answers: %w", err)
	}

	// 持久化页数和切分结果
	sub.PageCount = len(images)
	answersJSON, err := json.Marshal(answers.Map())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal answers: %w", err)
	}
	sub.Answers = datatypes.JSON(answersJSON)
	if err := s.repo.Update(sub); err != nil {
		s.logger.WithError(err).Warn("Failed to persist segmented answers")
	}

	return answers, len(images), nil
}

// transcribePages 并发转写页图像
// 单页失败以空文本占位，不中断整卷处理
func (s *SubmissionService) transcribePages(ctx context.Context, submissionID string, images []pages.PageImage, subject string) []string {
	collector := segment.NewPageCollector(len(images))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrency)

	for _, img := range images {
		wg.Add(1)
		sem <- struct{}{}

		go func(img pages.PageImage) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := s.transcriber.Transcribe(ctx, img.DataURI(), subject)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"submission_id": submissionID,
					"page_index":    img.Index,
				}).Warn("Failed to transcribe page, using empty text")
				text = ""
			}

			collector.Add(img.Index, text)

			page := &models.SubmissionPage{
				SubmissionID: submissionID,
				PageIndex:    img.Index,
				Text:         text,
				Transcribed:  err == nil,
			}
			if err := s.repo.SavePage(page); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"submission_id": submissionID,
					"page_index":    img.Index,
				}).Warn("Failed to save page transcription")
			}
		}(img)
	}

	wg.Wait()
	return collector.Pages()
}

// saveGradingResult 保存评卷结果并标记答卷完成
func (s *SubmissionService) saveGradingResult(ctx context.Context, sub *models.Submission, result *grading.Result) error {
	evals := make([]*models.SubmissionEvaluation, 0, len(result.Evaluations))
	for _, e := range result.Evaluations {
		evals = append(evals, &models.SubmissionEvaluation{
			SubmissionID:   sub.ID,
			QuestionNumber: e.QuestionNumber,
			Question:       e.Question,
			Assessment:     e.Assessment,
			Correct:        e.Correct,
			Score:          e.Score,
			MaxScore:       e.MaxScore,
		})
	}

	if err := s.repo.SaveEvaluations(evals); err != nil {
		return fmt.Errorf("failed to save evaluations: %w", err)
	}

	if err := s.statusManager.MarkAsCompleted(ctx, sub.ID, result.TotalScore, result.MaxScore); err != nil {
		return fmt.Errorf("failed to mark submission as completed: %w", err)
	}

	// 缓存评卷报告
	s.cacheReport(sub, result)

	return nil
}

// cacheReport 把评卷报告写入缓存
func (s *SubmissionService) cacheReport(sub *models.Submission, result *grading.Result) {
	if s.resultCache == nil {
		return
	}

	keyModel, err := s.keyRepo.GetByID(sub.QuestionKeyID)
	subject := ""
	if err == nil {
		subject = keyModel.Subject
	}

	r := report.Build(sub.ID, subject, result)
	cacheKey := cache.ReportCacheKey(sub.ID, sub.QuestionKeyID)
	if err := cache.SetJSON(s.resultCache, cacheKey, r, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache grading report")
	}
}

// GetSubmissionResult 获取答卷的评卷报告
func (s *SubmissionService) GetSubmissionResult(ctx context.Context, submissionID string) (*report.Report, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if sub.Status != models.SubStatusCompleted {
		return nil, fmt.Errorf("submission %s is not graded yet (status: %s)", submissionID, sub.Status)
	}

	// 先查缓存
	cacheKey := cache.ReportCacheKey(sub.ID, sub.QuestionKeyID)
	if s.resultCache != nil {
		var cached report.Report
		if found, err := cache.GetJSON(s.resultCache, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	// 缓存未命中，从数据库组装
	evals, err := s.repo.GetEvaluations(submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}

	result := &grading.Result{
		TotalScore: sub.TotalScore,
		MaxScore:   sub.MaxScore,
	}
	for _, e := range evals {
		result.Evaluations = append(result.Evaluations, grading.Evaluation{
			QuestionNumber: e.QuestionNumber,
			Question:       e.Question,
			Assessment:     e.Assessment,
			Correct:        e.Correct,
			Score:          e.Score,
			MaxScore:       e.MaxScore,
		})
	}

	subject := ""
	if keyModel, err := s.keyRepo.GetByID(sub.QuestionKeyID); err == nil {
		subject = keyModel.Subject
	}

	r := report.Build(submissionID, subject, result)

	if s.resultCache != nil {
		if err := cache.SetJSON(s.resultCache, cacheKey, r, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache grading report")
		}
	}

	return r, nil
}

// RenderSubmissionReport 把答卷的评卷报告渲染为PDF
func (s *SubmissionService) RenderSubmissionReport(ctx context.Context, submissionID string, w io.Writer) error {
	r, err := s.GetSubmissionResult(ctx, submissionID)
	if err != nil {
		return err
	}
	return r.RenderPDF(w)
}

// GetSubmissionInfo 获取答卷信息
func (s *SubmissionService) GetSubmissionInfo(ctx context.Context, submissionID string) (map[string]interface{}, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	sub, err := s.statusManager.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	info := map[string]interface{}{
		"submission_id":   sub.ID,
		"filename":        sub.FileName,
		"question_key_id": sub.QuestionKeyID,
		"status":          sub.Status,
		"stage":           sub.CurrentStage,
		"created_at":      sub.UploadedAt.Format(time.RFC3339),
		"updated_at":      sub.UpdatedAt.Format(time.RFC3339),
		"size":            sub.FileSize,
		"page_count":      sub.PageCount,
	}

	if sub.StudentName != "" {
		info["student_name"] = sub.StudentName
	}

	if sub.Error != "" {
		info["error"] = sub.Error
	}

	if sub.ProcessedAt != nil {
		info["processed_at"] = sub.ProcessedAt.Format(time.RFC3339)
	}

	if sub.Status == models.SubStatusCompleted {
		info["total_score"] = sub.TotalScore
		info["max_score"] = sub.MaxScore
	}

	// 如果启用了异步处理，尝试获取相关任务信息
	if s.asyncEnabled && s.taskQueue != nil {
		tasks, err := s.taskQueue.GetTasksBySubmission(ctx, submissionID)
		if err == nil && len(tasks) > 0 {
			latestTask := tasks[0]
			for _, task := range tasks {
				if task.UpdatedAt.After(latestTask.UpdatedAt) {
					latestTask = task
				}
			}

			info["task_id"] = latestTask.ID
			info["task_status"] = latestTask.Status
			info["task_created_at"] = latestTask.CreatedAt.Format(time.RFC3339)

			if latestTask.Error != "" {
				info["task_error"] = latestTask.Error
			}
		}
	}

	return info, nil
}

// GetSubmissionStatus 获取答卷处理状态
func (s *SubmissionService) GetSubmissionStatus(ctx context.Context, submissionID string) (models.SubmissionStatus, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	return s.statusManager.GetStatus(ctx, submissionID)
}

// ListSubmissions 获取答卷列表
func (s *SubmissionService) ListSubmissions(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Submission, int64, error) {
	if err := s.Init(); err != nil {
		return nil, 0, err
	}

	return s.statusManager.ListSubmissions(ctx, offset, limit, filters)
}

// GetAnalytics 获取答卷统计汇总
func (s *SubmissionService) GetAnalytics(ctx context.Context) (*repository.SubmissionStats, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	return s.repo.Stats()
}

// DeleteSubmission 删除答卷及其相关数据
func (s *SubmissionService) DeleteSubmission(ctx context.Context, submissionID string) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.logger.WithField("submission_id", submissionID).Info("Deleting submission")

	sub, err := s.repo.GetByID(submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	// 1. 从存储中删除文件
	if err := s.storage.Delete(submissionID); err != nil {
		// 文件可能已被删除，记录错误但不中断流程
		s.logger.WithError(err).Warn("Failed to delete file from storage")
	}

	// 2. 删除缓存的报告
	if s.resultCache != nil {
		cacheKey := cache.ReportCacheKey(sub.ID, sub.QuestionKeyID)
		if err := s.resultCache.Delete(cacheKey); err != nil {
			s.logger.WithError(err).Warn("Failed to delete cached report")
		}
	}

	// 3. 删除答卷记录（级联删除页和评估结果）
	if err := s.statusManager.DeleteSubmission(ctx, submissionID); err != nil {
		s.logger.WithError(err).Error("Failed to delete submission record")
		return fmt.Errorf("failed to delete submission record: %w", err)
	}

	// 4. 如果任务队列已配置，删除相关任务
	if s.taskQueue != nil {
		tasks, err := s.taskQueue.GetTasksBySubmission(ctx, submissionID)
		if err == nil && len(tasks) > 0 {
			for _, task := range tasks {
				if err := s.taskQueue.DeleteTask(ctx, task.ID); err != nil {
					s.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to delete submission task")
				}
			}
		}
	}

	s.logger.WithField("submission_id", submissionID).Info("Submission deleted successfully")
	return nil
}

// WaitForSubmissionProcessing 等待答卷处理完成
func (s *SubmissionService) WaitForSubmissionProcessing(ctx context.Context, submissionID string, timeout time.Duration) error {
	if err := s.Init(); err != nil {
		return err
	}

	if !s.asyncEnabled || s.taskQueue == nil {
		status, err := s.statusManager.GetStatus(ctx, submissionID)
		if err != nil {
			return err
		}
		if status == models.SubStatusFailed {
			return fmt.Errorf("submission processing failed")
		}
		if status != models.SubStatusCompleted {
			return fmt.Errorf("submission not processed")
		}
		return nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tasks, err := s.taskQueue.GetTasksBySubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission tasks: %w", err)
	}

	if len(tasks) == 0 {
		return fmt.Errorf("no processing tasks found for submission %s", submissionID)
	}

	// 找到最新的处理任务
	var latestTask *taskqueue.Task
	for _, task := range tasks {
		if task.Type == taskqueue.TaskProcessSubmission {
			if latestTask == nil || task.CreatedAt.After(latestTask.CreatedAt) {
				latestTask = task
			}
		}
	}

	if latestTask == nil {
		return fmt.Errorf("no processing task found for submission %s", submissionID)
	}

	if _, err := s.taskQueue.WaitForTask(ctx, latestTask.ID, timeout); err != nil {
		return fmt.Errorf("failed to wait for submission processing: %w", err)
	}

	status, err := s.statusManager.GetStatus(ctx, submissionID)
	if err != nil {
		return err
	}

	if status == models.SubStatusFailed {
		return fmt.Errorf("submission processing failed")
	}

	if status != models.SubStatusCompleted {
		return fmt.Errorf("submission processing incomplete")
	}

	return nil
}

// RegisterPipelineStages 把答卷处理阶段注册到流水线处理器
// Worker通过流水线处理器在后台执行这些阶段
func (s *SubmissionService) RegisterPipelineStages(processor *taskqueue.PipelineProcessor) {
	processor.RegisterStage(taskqueue.TaskProcessSubmission, s.stageProcessSubmission)
	processor.RegisterStage(taskqueue.TaskTranscribePage, s.stageTranscribePage)
	processor.RegisterStage(taskqueue.TaskGradeSubmission, s.stageGradeSubmission)
}

// stageProcessSubmission 完整处理流程阶段
func (s *SubmissionService) stageProcessSubmission(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.ProcessSubmissionPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, taskqueue.ErrInvalidPayload
	}

	if err := s.processSubmissionSync(ctx, payload.SubmissionID); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByID(payload.SubmissionID)
	if err != nil {
		return nil, err
	}

	return &taskqueue.ProcessSubmissionResult{
		SubmissionID:     sub.ID,
		PageCount:        sub.PageCount,
		TotalScore:       sub.TotalScore,
		MaxScore:         sub.MaxScore,
		TranscribeStatus: string(taskqueue.StatusCompleted),
		GradeStatus:      string(taskqueue.StatusCompleted),
	}, nil
}

// stageTranscribePage 单页转写阶段
// 从存储读取页图像并转写，结果持久化到答卷页表
func (s *SubmissionService) stageTranscribePage(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.TranscribePagePayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, taskqueue.ErrInvalidPayload
	}

	reader, err := s.storage.GetByPath(payload.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}

	img := pages.PageImage{
		Index:    payload.PageIndex,
		Data:     data,
		MimeType: payload.MimeType,
	}

	// 与同步路径不同：这里返回错误交给队列重试，
	// 同步路径(transcribePages)在重试耗尽后把失败页降级为空文本
	text, err := s.transcriber.Transcribe(ctx, img.DataURI(), payload.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe page: %w", err)
	}

	page := &models.SubmissionPage{
		SubmissionID: payload.SubmissionID,
		PageIndex:    payload.PageIndex,
		Text:         text,
		Transcribed:  true,
		TaskID:       task.ID,
	}
	if err := s.repo.SavePage(page); err != nil {
		return nil, fmt.Errorf("failed to save page transcription: %w", err)
	}

	return &taskqueue.TranscribePageResult{
		SubmissionID: payload.SubmissionID,
		PageIndex:    payload.PageIndex,
		Text:         text,
		Chars:        len(text),
	}, nil
}

// stageGradeSubmission 评分阶段
// 基于已持久化的页转写结果重新切分并评卷，可用于补评或重评
func (s *SubmissionService) stageGradeSubmission(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.GradeSubmissionPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, taskqueue.ErrInvalidPayload
	}

	sub, err := s.repo.GetByID(payload.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	result, err := s.gradeStoredPages(ctx, sub)
	if err != nil {
		return nil, err
	}

	return &taskqueue.GradeSubmissionResult{
		SubmissionID:    payload.SubmissionID,
		TotalScore:      result.TotalScore,
		MaxScore:        result.MaxScore,
		EvaluationCount: len(result.Evaluations),
	}, nil
}

// gradeStoredPages 重新切分已持久化的页转写并评卷，结果覆盖旧成绩
func (s *SubmissionService) gradeStoredPages(ctx context.Context, sub *models.Submission) (*grading.Result, error) {
	dbPages, err := s.repo.GetPages(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission pages: %w", err)
	}
	if len(dbPages) == 0 {
		return nil, fmt.Errorf("no transcribed pages found for submission %s", sub.ID)
	}

	collector := segment.NewPageCollector(len(dbPages))
	for _, page := range dbPages {
		collector.Add(page.PageIndex, page.Text)
	}

	answers, err := s.segmenter.SegmentPages(collector.Pages())
	if err != nil {
		return nil, fmt.Errorf("failed to segment answers: %w", err)
	}

	key, _, err := s.loadKey(sub.QuestionKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question key: %w", err)
	}

	result, err := s.judge.Grade(ctx, key, answers)
	if err != nil {
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	if err := s.saveGradingResult(ctx, sub, result); err != nil {
		return nil, err
	}

	return result, nil
}

// loadKey 加载标准答案并还原为结构化题目集
func (s *SubmissionService) loadKey(questionKeyID string) (*questionkey.Key, *models.QuestionKey, error) {
	keyModel, err := s.keyRepo.GetByID(questionKeyID)
	if err != nil {
		return nil, nil, err
	}

	var key questionkey.Key
	if err := json.Unmarshal(keyModel.Questions, &key); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal question key: %w", err)
	}
	key.RebuildOrder()

	return &key, keyModel, nil
}

// localFilePath 把存储路径解析为本地文件路径
// 本地存储直接返回绝对路径；其他存储实现先落到临时文件
func (s *SubmissionService) localFilePath(storagePath string) (string, func(), error) {
	type absolutePather interface {
		AbsolutePath(path string) string
	}

	if local, ok := s.storage.(absolutePather); ok {
		return local.AbsolutePath(storagePath), func() {}, nil
	}

	reader, err := s.storage.GetByPath(storagePath)
	if err != nil {
		return "", nil, err
	}
	defer reader.Close()

	tmpFile, err := os.CreateTemp("", "submission-*"+filepath.Ext(storagePath))
	if err != nil {
		return "", nil, err
	}

	if _, err := io.Copy(tmpFile, reader); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", nil, err
	}
	tmpFile.Close()

	return tmpFile.Name(), func() { os.Remove(tmpFile.Name()) }, nil
}

// failSubmission 将答卷标记为失败状态
func (s *SubmissionService) failSubmission(ctx context.Context, submissionID string, errorMsg string) {
	if s.statusManager == nil {
		s.logger.Error("Cannot mark submission as failed: status manager not initialized")
		return
	}

	if err := s.statusManager.MarkAsFailed(ctx, submissionID, errorMsg); err != nil {
		s.logger.WithFields(logrus.Fields{
			"submission_id": submissionID,
			"error":         err,
		}).Error("Failed to mark submission as failed")
	}
}

// GetStatusManager 返回答卷状态管理器实例
func (s *SubmissionService) GetStatusManager() *SubmissionStatusManager {
	return s.statusManager
}

// GetTaskQueue 返回任务队列实例
func (s *SubmissionService) GetTaskQueue() taskqueue.Queue {
	return s.taskQueue
}
