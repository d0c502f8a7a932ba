package taskqueue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue 内存实现的任务队列，用于测试处理器逻辑
type fakeQueue struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{tasks: make(map[string]*Task)}
}

func (q *fakeQueue) Enqueue(ctx context.Context, taskType TaskType, submissionID string, payload interface{}) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", err
	}

	id := "task-" + string(taskType)
	q.tasks[id] = &Task{
		ID:           id,
		Type:         taskType,
		SubmissionID: submissionID,
		Status:       StatusPending,
		Payload:      payloadBytes,
		CreatedAt:    time.Now(),
	}
	return id, nil
}

func (q *fakeQueue) EnqueueAt(ctx context.Context, taskType TaskType, submissionID string, payload interface{}, processAt time.Time) (string, error) {
	return q.Enqueue(ctx, taskType, submissionID, payload)
}

func (q *fakeQueue) EnqueueIn(ctx context.Context, taskType TaskType, submissionID string, payload interface{}, delay time.Duration) (string, error) {
	return q.Enqueue(ctx, taskType, submissionID, payload)
}

func (q *fakeQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (q *fakeQueue) GetTasksBySubmission(ctx context.Context, submissionID string) ([]*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var tasks []*Task
	for _, task := range q.tasks {
		if task.SubmissionID == submissionID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (q *fakeQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	return q.GetTask(ctx, taskID)
}

func (q *fakeQueue) DeleteTask(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, taskID)
	return nil
}

func (q *fakeQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	if result != nil {
		resultBytes, err := MarshalPayload(result)
		if err != nil {
			return err
		}
		task.Result = resultBytes
	}
	task.Error = errorMsg
	return nil
}

func (q *fakeQueue) NotifyTaskUpdate(ctx context.Context, taskID string) error { return nil }

func (q *fakeQueue) Close() error { return nil }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// TestPipelineProcessorDispatch 测试按任务类型分发
func TestPipelineProcessorDispatch(t *testing.T) {
	queue := newFakeQueue()
	processor := NewPipelineProcessor(queue, newTestLogger())

	var handledType TaskType
	processor.RegisterStage(TaskTranscribePage, func(ctx context.Context, task *Task) (interface{}, error) {
		handledType = task.Type
		return nil, nil
	})

	taskID, err := queue.Enqueue(context.Background(), TaskTranscribePage, "sub-1", &TranscribePagePayload{
		SubmissionID: "sub-1",
		PageIndex:    0,
	})
	require.NoError(t, err)

	task, err := queue.GetTask(context.Background(), taskID)
	require.NoError(t, err)

	err = processor.ProcessTask(context.Background(), task)
	assert.NoError(t, err)
	assert.Equal(t, TaskTranscribePage, handledType)
}

// TestPipelineProcessorSavesResult 测试阶段结果写入任务记录
func TestPipelineProcessorSavesResult(t *testing.T) {
	queue := newFakeQueue()
	processor := NewPipelineProcessor(queue, newTestLogger())

	processor.RegisterStage(TaskTranscribePage, func(ctx context.Context, task *Task) (interface{}, error) {
		return &TranscribePageResult{
			SubmissionID: task.SubmissionID,
			PageIndex:    0,
			Text:         "1. gravity pulls objects down",
		}, nil
	})

	taskID, err := queue.Enqueue(context.Background(), TaskTranscribePage, "sub-1", nil)
	require.NoError(t, err)

	task, err := queue.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	require.NoError(t, processor.ProcessTask(context.Background(), task))

	stored, err := queue.GetTask(context.Background(), taskID)
	require.NoError(t, err)

	var result TranscribePageResult
	require.NoError(t, UnmarshalPayload(stored.Result, &result))
	assert.Equal(t, "1. gravity pulls objects down", result.Text)
}

// TestPipelineProcessorStageError 测试阶段失败时错误向上传播
func TestPipelineProcessorStageError(t *testing.T) {
	queue := newFakeQueue()
	processor := NewPipelineProcessor(queue, newTestLogger())

	stageErr := errors.New("transcription failed")
	processor.RegisterStage(TaskTranscribePage, func(ctx context.Context, task *Task) (interface{}, error) {
		return nil, stageErr
	})

	err := processor.ProcessTask(context.Background(), &Task{
		ID:   "task-1",
		Type: TaskTranscribePage,
	})
	assert.ErrorIs(t, err, stageErr)
}

// TestPipelineProcessorUnregisteredType 测试未注册任务类型的处理
func TestPipelineProcessorUnregisteredType(t *testing.T) {
	queue := newFakeQueue()
	processor := NewPipelineProcessor(queue, newTestLogger())

	err := processor.ProcessTask(context.Background(), &Task{
		ID:   "task-1",
		Type: TaskGradeSubmission,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no stage registered")

	// 设置默认处理函数后不再报错
	processor.SetDefaultStage(func(ctx context.Context, task *Task) (interface{}, error) {
		return nil, nil
	})
	err = processor.ProcessTask(context.Background(), &Task{
		ID:   "task-2",
		Type: TaskGradeSubmission,
	})
	assert.NoError(t, err)
}

// TestPipelineProcessorTaskTypes 测试已注册类型查询
func TestPipelineProcessorTaskTypes(t *testing.T) {
	processor := NewPipelineProcessor(newFakeQueue(), newTestLogger())

	processor.RegisterStage(TaskTranscribePage, func(ctx context.Context, task *Task) (interface{}, error) {
		return nil, nil
	})
	processor.RegisterStage(TaskGradeSubmission, func(ctx context.Context, task *Task) (interface{}, error) {
		return nil, nil
	})

	types := processor.GetTaskTypes()
	assert.Len(t, types, 2)

	registered := processor.GetRegisteredStageTypes()
	assert.True(t, registered[TaskTranscribePage])
	assert.True(t, registered[TaskGradeSubmission])
	assert.False(t, registered[TaskProcessSubmission])
}
