package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/repository"
	"github.com/fyerfyer/exam-grading-system/pkg/storage"
)

// setupKeyService 组装标准答案服务
func setupKeyService(t *testing.T) *QuestionKeyService {
	db := setupTestDB(t)
	keyRepo := repository.NewQuestionKeyRepositoryWithDB(db)

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	return NewQuestionKeyService(store, keyRepo, newServiceTestLogger())
}

// TestUploadKey 测试上传并解析标准答案
func TestUploadKey(t *testing.T) {
	service := setupKeyService(t)
	ctx := context.Background()

	keyModel, err := service.UploadKey(ctx, strings.NewReader(testKeyText), "midterm.txt", "Physics Midterm")
	require.NoError(t, err)

	assert.NotEmpty(t, keyModel.ID)
	assert.Equal(t, "Physics Midterm", keyModel.Name)
	assert.Equal(t, "Physics", keyModel.Subject)
	assert.Equal(t, "midterm.txt", keyModel.FileName)
	assert.Equal(t, 2, keyModel.QuestionCount)
	assert.Equal(t, 8, keyModel.TotalMarks)
	assert.NotEmpty(t, keyModel.Questions)
}

// TestUploadKeyDefaultsName 测试未提供名称时回退为文件名
func TestUploadKeyDefaultsName(t *testing.T) {
	service := setupKeyService(t)

	keyModel, err := service.UploadKey(context.Background(), strings.NewReader(testKeyText), "midterm.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "midterm.txt", keyModel.Name)
}

// TestUploadKeyUnsupportedFormat 测试不支持的文件格式
func TestUploadKeyUnsupportedFormat(t *testing.T) {
	service := setupKeyService(t)

	_, err := service.UploadKey(context.Background(), strings.NewReader("data"), "key.xlsx", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

// TestUploadKeyNoQuestions 测试不含题目的文件被拒绝
func TestUploadKeyNoQuestions(t *testing.T) {
	service := setupKeyService(t)

	_, err := service.UploadKey(context.Background(), strings.NewReader("just some prose\nwith no questions"), "notes.txt", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no questions found")
}

// TestGetParsedKey 测试还原结构化题目集
func TestGetParsedKey(t *testing.T) {
	service := setupKeyService(t)
	ctx := context.Background()

	keyModel, err := service.UploadKey(ctx, strings.NewReader(testKeyText), "midterm.txt", "")
	require.NoError(t, err)

	key, err := service.GetParsedKey(ctx, keyModel.ID)
	require.NoError(t, err)

	assert.Equal(t, "Physics", key.Subject)
	assert.Equal(t, []string{"Q1", "Q2"}, key.Order)

	q1, ok := key.QuestionByNumber("1")
	require.True(t, ok)
	assert.Equal(t, "What is gravity?", q1.Text)
	assert.Equal(t, 5, q1.Marks)
	assert.Contains(t, q1.IdealAnswer, "force that attracts")
}

// TestListAndDeleteKeys 测试标准答案的列表和删除
func TestListAndDeleteKeys(t *testing.T) {
	service := setupKeyService(t)
	ctx := context.Background()

	first, err := service.UploadKey(ctx, strings.NewReader(testKeyText), "midterm.txt", "first")
	require.NoError(t, err)
	_, err = service.UploadKey(ctx, strings.NewReader(testKeyText), "final.txt", "second")
	require.NoError(t, err)

	keys, total, err := service.ListKeys(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, keys, 2)

	require.NoError(t, service.DeleteKey(ctx, first.ID))

	_, err = service.GetKey(ctx, first.ID)
	assert.ErrorIs(t, err, models.ErrQuestionKeyNotFound)
}
