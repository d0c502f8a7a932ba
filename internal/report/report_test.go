package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/exam-grading-system/internal/grading"
)

func testResult() *grading.Result {
	return &grading.Result{
		Evaluations: []grading.Evaluation{
			{QuestionNumber: "Q1", Question: "What is gravity?", Assessment: "Good [Right]", Correct: true, Score: 5, MaxScore: 5},
			{QuestionNumber: "Q2", Question: "Explain inertia", Assessment: "Incomplete [Wrong]", Score: 0, MaxScore: 3},
		},
		TotalScore: 5,
		MaxScore:   8,
	}
}

func TestBuildReport(t *testing.T) {
	r := Build("sub-123", "Physics", testResult())

	assert.Equal(t, "sub-123", r.SubmissionID)
	assert.Equal(t, 5, r.TotalScore)
	assert.Equal(t, 8, r.MaxScore)
	assert.InDelta(t, 62.5, r.Percentage, 0.01)
	assert.Len(t, r.Evaluations, 2)
}

func TestBuildReportNilResult(t *testing.T) {
	r := Build("sub-123", "", nil)

	assert.Equal(t, 0, r.TotalScore)
	assert.Equal(t, 0.0, r.Percentage)
	assert.Empty(t, r.Evaluations)
}

func TestReportSummary(t *testing.T) {
	r := Build("sub-123", "Physics", testResult())
	assert.Equal(t, "score 5/8 (62.5%), 2 questions evaluated", r.Summary())
}

func TestRenderPDF(t *testing.T) {
	r := Build("sub-123", "Physics", testResult())

	var buf bytes.Buffer
	require.NoError(t, r.RenderPDF(&buf))

	// PDF文件以%PDF开头
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "F = m ? a", sanitizeText("F = m × a"))
	assert.Equal(t, "plain ascii", sanitizeText("plain ascii"))
}
