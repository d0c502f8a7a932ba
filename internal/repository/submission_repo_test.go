package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fyerfyer/exam-grading-system/internal/models"
)

// setupTestDB 创建内存数据库并迁移模型
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create in-memory database")

	// 内存数据库限制单连接，避免连接池拿到空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Submission{},
		&models.SubmissionPage{},
		&models.SubmissionEvaluation{},
		&models.SubmissionTask{},
		&models.QuestionKey{},
	)
	require.NoError(t, err, "Failed to run migrations")

	return db
}

func newTestSubmission(keyID string) *models.Submission {
	return &models.Submission{
		ID:            uuid.New().String(),
		QuestionKeyID: keyID,
		FileName:      "sheet.pdf",
		FileType:      ".pdf",
		FilePath:      "/tmp/sheet.pdf",
		FileSize:      1024,
		Status:        models.SubStatusUploaded,
	}
}

func TestSubmissionRepositoryCreateAndGet(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))

	got, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.FileName, got.FileName)
	assert.Equal(t, models.SubStatusUploaded, got.Status)
	assert.False(t, got.UploadedAt.IsZero(), "BeforeCreate hook should set the upload time")
}

func TestSubmissionRepositoryCreateRequiresID(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	err := repo.Create(&models.Submission{FileName: "sheet.pdf"})
	assert.Error(t, err)
}

func TestSubmissionRepositoryGetMissing(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, models.ErrSubmissionNotFound)
}

func TestSubmissionRepositoryUpdateStatus(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))

	require.NoError(t, repo.UpdateStatus(sub.ID, models.SubStatusCompleted, ""))

	got, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCompleted, got.Status)
	assert.NotNil(t, got.ProcessedAt, "terminal status should set the processed time")
}

func TestSubmissionRepositoryUpdateStatusFailed(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))

	require.NoError(t, repo.UpdateStatus(sub.ID, models.SubStatusFailed, "ocr failed"))

	got, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusFailed, got.Status)
	assert.Equal(t, "ocr failed", got.Error)
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepositoryWithDB(db)

	first := newTestSubmission("key-1")
	second := newTestSubmission("key-2")
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))
	require.NoError(t, repo.UpdateStatus(second.ID, models.SubStatusCompleted, ""))

	subs, total, err := repo.List(0, 10, map[string]interface{}{"status": models.SubStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, subs, 1)
	assert.Equal(t, second.ID, subs[0].ID)

	subs, total, err = repo.List(0, 10, map[string]interface{}{"question_key_id": "key-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, subs[0].ID)
}

func TestSubmissionRepositoryPages(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))

	// 乱序保存，读取时按页号升序
	require.NoError(t, repo.SavePage(&models.SubmissionPage{SubmissionID: sub.ID, PageIndex: 1, Text: "page two", Transcribed: true}))
	require.NoError(t, repo.SavePage(&models.SubmissionPage{SubmissionID: sub.ID, PageIndex: 0, Text: "page one", Transcribed: true}))

	pages, err := repo.GetPages(sub.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 0, pages[0].PageIndex)
	assert.Equal(t, "page one", pages[0].Text)
}

func TestSubmissionRepositoryEvaluations(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))

	evals := []*models.SubmissionEvaluation{
		{SubmissionID: sub.ID, QuestionNumber: "Q1", Correct: true, Score: 5, MaxScore: 5},
		{SubmissionID: sub.ID, QuestionNumber: "Q2", Correct: false, Score: 0, MaxScore: 3},
	}
	require.NoError(t, repo.SaveEvaluations(evals))

	got, err := repo.GetEvaluations(sub.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Q1", got[0].QuestionNumber)
	assert.True(t, got[0].Correct)

	// 再次保存覆盖旧结果而不是追加
	require.NoError(t, repo.SaveEvaluations([]*models.SubmissionEvaluation{
		{SubmissionID: sub.ID, QuestionNumber: "Q1", Correct: false, Score: 0, MaxScore: 5},
	}))

	got, err = repo.GetEvaluations(sub.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Correct)
}

func TestSubmissionRepositoryDelete(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	sub := newTestSubmission("key-1")
	require.NoError(t, repo.Create(sub))
	require.NoError(t, repo.SavePage(&models.SubmissionPage{SubmissionID: sub.ID, PageIndex: 0, Text: "page"}))

	require.NoError(t, repo.Delete(sub.ID))

	_, err := repo.GetByID(sub.ID)
	assert.ErrorIs(t, err, models.ErrSubmissionNotFound)

	pages, err := repo.GetPages(sub.ID)
	require.NoError(t, err)
	assert.Empty(t, pages, "deleting a submission removes its pages")
}

func TestSubmissionRepositoryStats(t *testing.T) {
	repo := NewSubmissionRepositoryWithDB(setupTestDB(t))

	first := newTestSubmission("key-1")
	second := newTestSubmission("key-1")
	third := newTestSubmission("key-2")
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))
	require.NoError(t, repo.Create(third))

	// 一份完成（8/10），一份失败
	second.Status = models.SubStatusCompleted
	second.TotalScore = 8
	second.MaxScore = 10
	require.NoError(t, repo.Update(second))
	require.NoError(t, repo.UpdateStatus(third.ID, models.SubStatusFailed, "ocr failed"))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.SubStatusUploaded])
	assert.Equal(t, int64(1), stats.ByStatus[models.SubStatusCompleted])
	assert.Equal(t, int64(1), stats.ByStatus[models.SubStatusFailed])
	assert.InDelta(t, 80.0, stats.AveragePercentage, 0.001)
}

func TestQuestionKeyRepository(t *testing.T) {
	repo := NewQuestionKeyRepositoryWithDB(setupTestDB(t))

	key := &models.QuestionKey{
		ID:            uuid.New().String(),
		Name:          "physics midterm",
		Subject:       "Physics",
		FileName:      "key.pdf",
		FilePath:      "/tmp/key.pdf",
		QuestionCount: 2,
		TotalMarks:    8,
	}
	require.NoError(t, repo.Create(key))

	got, err := repo.GetByID(key.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics", got.Subject)
	assert.Equal(t, 8, got.TotalMarks)

	keys, total, err := repo.List(0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, keys, 1)

	require.NoError(t, repo.Delete(key.ID))
	_, err = repo.GetByID(key.ID)
	assert.ErrorIs(t, err, models.ErrQuestionKeyNotFound)
}
