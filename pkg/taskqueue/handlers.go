package taskqueue

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// StageFunc 流水线阶段处理函数类型
// 处理特定类型的任务，返回的结果会被写入任务记录
type StageFunc func(ctx context.Context, task *Task) (interface{}, error)

// PipelineProcessor 流水线处理器
// 按任务类型分发到注册的阶段处理函数，实现Handler接口，
// 一个处理器实例可以注册到Worker上处理全部阶段的任务
type PipelineProcessor struct {
	queue     Queue                  // 任务队列
	stages    map[TaskType]StageFunc // 任务类型对应的处理函数
	defaultFn StageFunc              // 默认处理函数
	logger    *logrus.Logger         // 日志记录器
}

// NewPipelineProcessor 创建新的流水线处理器
func NewPipelineProcessor(queue Queue, logger *logrus.Logger) *PipelineProcessor {
	if logger == nil {
		logger = logrus.New()
	}

	return &PipelineProcessor{
		queue:  queue,
		stages: make(map[TaskType]StageFunc),
		logger: logger,
	}
}

// RegisterStage 注册特定类型的任务处理函数
func (p *PipelineProcessor) RegisterStage(taskType TaskType, fn StageFunc) {
	p.stages[taskType] = fn
	p.logger.Infof("Registered stage for task type: %s", taskType)
}

// SetDefaultStage 设置默认处理函数
// 没有注册阶段的任务类型会落到默认处理函数上
func (p *PipelineProcessor) SetDefaultStage(fn StageFunc) {
	p.defaultFn = fn
}

// ProcessTask 处理任务，实现Handler接口
func (p *PipelineProcessor) ProcessTask(ctx context.Context, task *Task) error {
	p.logger.WithFields(logrus.Fields{
		"task_id":       task.ID,
		"submission_id": task.SubmissionID,
		"type":          task.Type,
	}).Info("Processing pipeline task")

	fn, exists := p.stages[task.Type]
	if !exists {
		fn = p.defaultFn
	}

	if fn == nil {
		return fmt.Errorf("no stage registered for task type: %s", task.Type)
	}

	result, err := fn(ctx, task)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"task_id": task.ID,
			"type":    task.Type,
		}).Error("Pipeline stage failed")
		return err
	}

	// 阶段返回了结果数据，写入任务记录
	// 状态由Worker统一更新，这里只保存结果
	if result != nil {
		if err := p.queue.UpdateTaskStatus(ctx, task.ID, task.Status, result, ""); err != nil {
			p.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to save stage result")
		}
	}

	return nil
}

// GetTaskTypes 返回已注册的任务类型，实现Handler接口
func (p *PipelineProcessor) GetTaskTypes() []TaskType {
	types := make([]TaskType, 0, len(p.stages))
	for taskType := range p.stages {
		types = append(types, taskType)
	}
	return types
}

// GetRegisteredStageTypes 返回已注册阶段的任务类型集合
func (p *PipelineProcessor) GetRegisteredStageTypes() map[TaskType]bool {
	result := make(map[TaskType]bool)
	for taskType := range p.stages {
		result[taskType] = true
	}
	return result
}
