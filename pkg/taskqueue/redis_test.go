package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest 设置一个miniredis实例用于测试
// 返回Redis地址和一个清理函数
func setupRedisTest(t *testing.T) (string, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	return mr.Addr(), func() {
		mr.Close()
	}
}

// newTestQueue 创建测试用的Redis队列
func newTestQueue(t *testing.T, redisAddr string) Queue {
	cfg := &Config{
		RedisAddr:   redisAddr,
		Concurrency: 2,
		RetryLimit:  2,
		RetryDelay:  time.Second,
	}

	queue, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	return queue
}

// TestNewRedisQueue 测试创建Redis队列实例
func TestNewRedisQueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	assert.NotNil(t, queue)

	err := queue.Close()
	assert.NoError(t, err)
}

// TestRedisQueue_Enqueue 测试队列入队功能
func TestRedisQueue_Enqueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &TranscribePagePayload{
		SubmissionID: "sub-123",
		PageIndex:    0,
		PageCount:    3,
		ImagePath:    "2026/01/15/page_0.png",
		MimeType:     "image/png",
		Subject:      "Physics",
	}

	taskID, err := queue.Enqueue(ctx, TaskTranscribePage, "sub-123", payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	// 验证任务已入队
	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskTranscribePage, task.Type)
	assert.Equal(t, "sub-123", task.SubmissionID)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Payload)

	// 载荷可以反序列化回原始结构
	var decoded TranscribePagePayload
	require.NoError(t, UnmarshalPayload(task.Payload, &decoded))
	assert.Equal(t, 0, decoded.PageIndex)
	assert.Equal(t, "Physics", decoded.Subject)
}

// TestRedisQueue_EnqueueAt 测试延时入队功能
func TestRedisQueue_EnqueueAt(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &GradeSubmissionPayload{
		SubmissionID:  "sub-123",
		QuestionKeyID: "key-456",
	}

	processAt := time.Now().Add(time.Second)
	taskID, err := queue.EnqueueAt(ctx, TaskGradeSubmission, "sub-123", payload, processAt)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, TaskGradeSubmission, task.Type)
	assert.Equal(t, StatusPending, task.Status)
}

// TestRedisQueue_GetTaskNotFound 测试获取不存在的任务
func TestRedisQueue_GetTaskNotFound(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	_, err := queue.GetTask(context.Background(), "no-such-task")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// TestRedisQueue_GetTasksBySubmission 测试按答卷查询任务
func TestRedisQueue_GetTasksBySubmission(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	// 为同一答卷入队两个页转写任务
	for i := 0; i < 2; i++ {
		payload := &TranscribePagePayload{
			SubmissionID: "sub-123",
			PageIndex:    i,
			PageCount:    2,
		}
		_, err := queue.Enqueue(ctx, TaskTranscribePage, "sub-123", payload)
		require.NoError(t, err)
	}

	// 另一答卷的任务不应出现在结果中
	_, err := queue.Enqueue(ctx, TaskGradeSubmission, "sub-other", &GradeSubmissionPayload{SubmissionID: "sub-other"})
	require.NoError(t, err)

	tasks, err := queue.GetTasksBySubmission(ctx, "sub-123")
	assert.NoError(t, err)
	assert.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "sub-123", task.SubmissionID)
	}

	// 无任务的答卷返回空切片
	tasks, err = queue.GetTasksBySubmission(ctx, "sub-none")
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestRedisQueue_UpdateTaskStatus 测试更新任务状态
func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskTranscribePage, "sub-123", &TranscribePagePayload{
		SubmissionID: "sub-123",
		PageIndex:    0,
	})
	require.NoError(t, err)

	// 更新为处理中
	err = queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, "")
	assert.NoError(t, err)

	task, err := queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt)

	// 更新为完成并写入结果
	result := &TranscribePageResult{
		SubmissionID: "sub-123",
		PageIndex:    0,
		Text:         "1. Answer to first question",
		Chars:        28,
	}
	err = queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, "")
	assert.NoError(t, err)

	task, err = queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)

	var decoded TranscribePageResult
	require.NoError(t, UnmarshalPayload(task.Result, &decoded))
	assert.Equal(t, "1. Answer to first question", decoded.Text)
}

// TestRedisQueue_UpdateTaskStatusFailed 测试记录任务失败
func TestRedisQueue_UpdateTaskStatusFailed(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskGradeSubmission, "sub-123", &GradeSubmissionPayload{
		SubmissionID:  "sub-123",
		QuestionKeyID: "key-456",
	})
	require.NoError(t, err)

	err = queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, "grading service unavailable")
	assert.NoError(t, err)

	task, err := queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "grading service unavailable", task.Error)
}

// TestRedisQueue_WaitForTask 测试等待任务完成
func TestRedisQueue_WaitForTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskProcessSubmission, "sub-123", &ProcessSubmissionPayload{
		SubmissionID: "sub-123",
	})
	require.NoError(t, err)

	// 模拟后台处理完成
	go func() {
		time.Sleep(100 * time.Millisecond)
		queue.UpdateTaskStatus(context.Background(), taskID, StatusCompleted, nil, "")
	}()

	task, err := queue.WaitForTask(ctx, taskID, 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
}

// TestRedisQueue_WaitForTaskTimeout 测试等待任务超时
func TestRedisQueue_WaitForTaskTimeout(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskProcessSubmission, "sub-123", nil)
	require.NoError(t, err)

	// 任务一直保持pending，等待应超时
	_, err = queue.WaitForTask(ctx, taskID, 1500*time.Millisecond)
	assert.ErrorIs(t, err, ErrTaskTimeout)
}

// TestRedisQueue_DeleteTask 测试删除任务
func TestRedisQueue_DeleteTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskTranscribePage, "sub-123", nil)
	require.NoError(t, err)

	err = queue.DeleteTask(ctx, taskID)
	assert.NoError(t, err)

	_, err = queue.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// 答卷任务集合中也应被移除
	tasks, err := queue.GetTasksBySubmission(ctx, "sub-123")
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestNewQueueFactory 测试队列工厂
func TestNewQueueFactory(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.RedisAddr = redisAddr

	queue, err := NewQueue("redis", cfg)
	assert.NoError(t, err)
	assert.NotNil(t, queue)
	queue.Close()

	_, err = NewQueue("unknown", cfg)
	assert.Error(t, err)
}

// TestNewTaskInfo 测试任务元信息转换
func TestNewTaskInfo(t *testing.T) {
	now := time.Now()
	task := &Task{
		ID:           "task-1",
		Type:         TaskGradeSubmission,
		SubmissionID: "sub-1",
		Status:       StatusCompleted,
		CreatedAt:    now,
		CompletedAt:  &now,
	}

	info := NewTaskInfo(task)
	assert.Equal(t, "task-1", info.ID)
	assert.Equal(t, "sub-1", info.SubmissionID)
	assert.Equal(t, 100.0, info.Progress)

	task.Status = StatusPending
	assert.Equal(t, 0.0, NewTaskInfo(task).Progress)

	task.Status = StatusProcessing
	assert.Equal(t, 50.0, NewTaskInfo(task).Progress)
}
