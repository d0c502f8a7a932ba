package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// 任务记录保留7天，足够覆盖评卷结果的查询窗口
const defaultTaskExpiry = 7 * 24 * time.Hour

// Redis键布局：
//
//	task:<taskID>               任务记录(JSON)
//	submission_tasks:<subID>    答卷名下的任务ID集合
//	task_status:<taskID>        状态变更的发布订阅频道
func taskKey(taskID string) string           { return "task:" + taskID }
func submissionTasksKey(subID string) string { return "submission_tasks:" + subID }
func taskStatusChannel(taskID string) string { return "task_status:" + taskID }

// RedisQueue 基于asynq的任务队列
// asynq负责调度和重试，任务元数据另存一份在Redis里供查询
type RedisQueue struct {
	client      *asynq.Client
	inspector   *asynq.Inspector
	redisClient *redis.Client
	cfg         *Config
	logger      *logrus.Logger
}

// NewRedisQueue 创建Redis任务队列实例
func NewRedisQueue(cfg *Config) (Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opt := redisClientOpt(cfg)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 启动时校验Redis可达
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &RedisQueue{
		client:      asynq.NewClient(opt),
		inspector:   asynq.NewInspector(opt),
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func redisClientOpt(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Enqueue 将任务加入队列
func (q *RedisQueue) Enqueue(ctx context.Context, taskType TaskType, submissionID string, payload interface{}) (string, error) {
	taskID, err := q.enqueue(ctx, taskType, submissionID, payload)
	if err != nil {
		return "", err
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":       taskID,
		"task_type":     taskType,
		"submission_id": submissionID,
	}).Info("Task enqueued successfully")

	return taskID, nil
}

// EnqueueAt 在指定时间将任务加入队列
func (q *RedisQueue) EnqueueAt(ctx context.Context, taskType TaskType, submissionID string, payload interface{}, processAt time.Time) (string, error) {
	return q.enqueue(ctx, taskType, submissionID, payload, asynq.ProcessAt(processAt))
}

// EnqueueIn 在指定延迟后将任务加入队列
func (q *RedisQueue) EnqueueIn(ctx context.Context, taskType TaskType, submissionID string, payload interface{}, delay time.Duration) (string, error) {
	return q.EnqueueAt(ctx, taskType, submissionID, payload, time.Now().Add(delay))
}

// enqueue 保存任务记录并投递asynq任务，asynq负载只携带任务ID
func (q *RedisQueue) enqueue(ctx context.Context, taskType TaskType, submissionID string, payload interface{}, opts ...asynq.Option) (string, error) {
	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	task := &Task{
		ID:           uuid.New().String(),
		Type:         taskType,
		SubmissionID: submissionID,
		Status:       StatusPending,
		Payload:      payloadBytes,
		CreatedAt:    now,
		UpdatedAt:    now,
		MaxRetries:   q.cfg.RetryLimit,
	}

	if err := q.saveTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task to redis: %w", err)
	}

	asynqTask := asynq.NewTask(string(taskType), []byte(task.ID))
	if _, err := q.client.EnqueueContext(ctx, asynqTask, opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return task.ID, nil
}

// GetTask 获取任务信息
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task from redis: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &task, nil
}

// GetTasksBySubmission 获取答卷名下的所有任务
func (q *RedisQueue) GetTasksBySubmission(ctx context.Context, submissionID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, submissionTasksKey(submissionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			// 任务记录可能已过期，集合里的ID先于记录清理
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// WaitForTask 阻塞等待任务进入终态
// 订阅状态频道并以1秒间隔兜底轮询，防止错过通知
func (q *RedisQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if isTerminal(task.Status) {
		return task, nil
	}

	pubsub := q.redisClient.Subscribe(ctx, taskStatusChannel(taskID))
	defer pubsub.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ErrTaskTimeout
		case <-ticker.C:
			task, err := q.GetTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if isTerminal(task.Status) {
				return task, nil
			}
		}
	}
}

// DeleteTask 删除任务记录
func (q *RedisQueue) DeleteTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.SubmissionID != "" {
		if err := q.redisClient.SRem(ctx, submissionTasksKey(task.SubmissionID), taskID).Err(); err != nil {
			return fmt.Errorf("failed to remove task from submission tasks: %w", err)
		}
	}

	if err := q.redisClient.Del(ctx, taskKey(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	// 已经在处理中的任务asynq可能删不掉，只记录警告
	if err := q.inspector.DeleteTask("default", taskID); err != nil {
		q.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to delete task from asynq queue")
	}

	return nil
}

// Close 关闭队列连接
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redisClient.Close()
}

// saveTask 写入任务记录并维护答卷任务集合
func (q *RedisQueue) saveTask(ctx context.Context, task *Task) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := q.redisClient.Set(ctx, taskKey(task.ID), taskData, defaultTaskExpiry).Err(); err != nil {
		return fmt.Errorf("failed to save task data: %w", err)
	}

	if task.SubmissionID != "" {
		subKey := submissionTasksKey(task.SubmissionID)
		if err := q.redisClient.SAdd(ctx, subKey, task.ID).Err(); err != nil {
			return fmt.Errorf("failed to add task to submission tasks: %w", err)
		}
		q.redisClient.Expire(ctx, subKey, defaultTaskExpiry)
	}

	return nil
}

// UpdateTaskStatus 更新任务状态及结果
func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now

	if status == StatusProcessing && task.StartedAt == nil {
		task.StartedAt = &now
	}
	if isTerminal(status) {
		task.CompletedAt = &now
	}

	if result != nil {
		resultBytes, err := MarshalPayload(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		task.Result = resultBytes
	}
	if errMsg != "" {
		task.Error = errMsg
	}

	return q.saveTask(ctx, task)
}

// NotifyTaskUpdate 向状态频道广播任务变更
func (q *RedisQueue) NotifyTaskUpdate(ctx context.Context, taskID string) error {
	return q.redisClient.Publish(ctx, taskStatusChannel(taskID), "updated").Err()
}

func isTerminal(status TaskStatus) bool {
	return status == StatusCompleted || status == StatusFailed
}

// RedisWorker 消费队列任务的工作者
type RedisWorker struct {
	server   *asynq.Server
	queue    *RedisQueue
	handlers map[TaskType]Handler
	logger   *logrus.Logger
}

// NewRedisWorker 创建Redis工作者
func NewRedisWorker(queue *RedisQueue, cfg *Config) Worker {
	if cfg == nil {
		cfg = queue.cfg
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return cfg.RetryDelay
			},
			Logger: queue.logger,
		},
	)

	return &RedisWorker{
		server:   server,
		queue:    queue,
		handlers: make(map[TaskType]Handler),
		logger:   queue.logger,
	}
}

// RegisterHandler 注册任务处理器
func (w *RedisWorker) RegisterHandler(taskType TaskType, handler Handler) {
	w.handlers[taskType] = handler
}

// Start 启动工作者
func (w *RedisWorker) Start() error {
	mux := asynq.NewServeMux()

	for taskType, handler := range w.handlers {
		mux.HandleFunc(string(taskType), w.wrap(handler))
		w.logger.WithField("task_type", taskType).Info("Registered handler for task type")
	}

	return w.server.Start(mux)
}

// wrap 把业务Handler包装成asynq处理函数
// 负责读取任务记录、维护状态流转和发布变更通知
func (w *RedisWorker) wrap(handler Handler) asynq.HandlerFunc {
	return func(ctx context.Context, asynqTask *asynq.Task) error {
		taskID := string(asynqTask.Payload())

		task, err := w.queue.GetTask(ctx, taskID)
		if err != nil {
			w.logger.WithError(err).WithField("task_id", taskID).Error("Failed to get task info")
			return err
		}

		w.setStatus(ctx, taskID, StatusProcessing, "")

		if err := handler.ProcessTask(ctx, task); err != nil {
			w.setStatus(ctx, taskID, StatusFailed, err.Error())
			return err
		}

		w.setStatus(ctx, taskID, StatusCompleted, "")
		return nil
	}
}

// setStatus 更新任务状态并广播，更新失败不阻断任务处理
func (w *RedisWorker) setStatus(ctx context.Context, taskID string, status TaskStatus, errMsg string) {
	if err := w.queue.UpdateTaskStatus(ctx, taskID, status, nil, errMsg); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"task_id": taskID,
			"status":  status,
		}).Error("Failed to update task status")
	}
	w.queue.NotifyTaskUpdate(ctx, taskID)
}

// Stop 停止工作者
func (w *RedisWorker) Stop() {
	w.server.Shutdown()
}

// 队列实现的注册表
var queueFactories = make(map[string]Factory)

// RegisterQueueFactory 注册队列工厂函数
func RegisterQueueFactory(name string, factory Factory) {
	queueFactories[name] = factory
}

// NewQueue 根据名称创建队列实例
func NewQueue(name string, cfg *Config) (Queue, error) {
	factory, exists := queueFactories[name]
	if !exists {
		return nil, fmt.Errorf("unknown queue implementation: %s", name)
	}
	return factory(cfg)
}

func init() {
	RegisterQueueFactory("redis", func(cfg *Config) (Queue, error) {
		return NewRedisQueue(cfg)
	})
}
