package grading

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/exam-grading-system/internal/questionkey"
	"github.com/fyerfyer/exam-grading-system/internal/segment"
)

// fakeClient 返回固定评估文本的评卷客户端
type fakeClient struct {
	response string
	prompt   string
	err      error
}

func (f *fakeClient) Evaluate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) Name() string {
	return "fake"
}

func testKey() *questionkey.Key {
	return &questionkey.Key{
		Subject: "Physics",
		Questions: map[string]questionkey.Question{
			"Q1": {Text: "What is gravity?", IdealAnswer: "A force pulling objects together", Marks: 5},
			"Q2": {Text: "Explain inertia", IdealAnswer: "Objects resist change of motion", Marks: 3},
		},
		Order: []string{"Q1", "Q2"},
	}
}

func testAnswers() *segment.AnswerMap {
	answers := segment.NewAnswerMap()
	answers.Set("1", "It pulls objects down.")
	answers.Set("2", "Objects resist change.")
	return answers
}

func TestJudgeBuildPrompt(t *testing.T) {
	judge := NewJudge(&fakeClient{})
	prompt := judge.BuildPrompt(testKey(), testAnswers())

	assert.Contains(t, prompt, "Q1: What is gravity?")
	assert.Contains(t, prompt, "Ideal Answer: A force pulling objects together")
	assert.Contains(t, prompt, "Marks: 5")
	assert.Contains(t, prompt, "Q1: It pulls objects down.")
	assert.Contains(t, prompt, "Q2: Objects resist change.")
}

func TestJudgeBuildPromptMissingAnswer(t *testing.T) {
	answers := segment.NewAnswerMap()
	answers.Set("1", "only the first answer")

	judge := NewJudge(&fakeClient{})
	prompt := judge.BuildPrompt(testKey(), answers)

	assert.Contains(t, prompt, "Q2: [No answer provided]")
}

func TestJudgeBuildPromptExtraAnswer(t *testing.T) {
	answers := testAnswers()
	answers.Set("3", "an answer the key does not have")

	judge := NewJudge(&fakeClient{})
	prompt := judge.BuildPrompt(testKey(), answers)

	assert.Contains(t, prompt, "Q3: [Question not found in key]")
	assert.Contains(t, prompt, "Q3: an answer the key does not have")
}

func TestJudgeBuildPromptQuestionOrder(t *testing.T) {
	key := testKey()
	key.Questions["Q10"] = questionkey.Question{Text: "tenth question", Marks: 1}
	key.Order = append(key.Order, "Q10")

	judge := NewJudge(&fakeClient{})
	prompt := judge.BuildPrompt(key, testAnswers())

	// 题号按数字序而不是字典序排列
	pos2 := strings.Index(prompt, "Q2: Explain inertia")
	pos10 := strings.Index(prompt, "Q10: tenth question")
	require.GreaterOrEqual(t, pos2, 0)
	require.GreaterOrEqual(t, pos10, 0)
	assert.Less(t, pos2, pos10)
}

func TestJudgeGrade(t *testing.T) {
	client := &fakeClient{
		response: strings.Join([]string{
			"Q1: What is gravity? - The answer captures the idea [Right]",
			"Q2: Explain inertia - Missing the key concept [Wrong]",
		}, "\n"),
	}

	judge := NewJudge(client)
	result, err := judge.Grade(context.Background(), testKey(), testAnswers())
	require.NoError(t, err)

	require.Len(t, result.Evaluations, 2)
	assert.Equal(t, 5, result.Evaluations[0].Score, "correct answers earn the key marks")
	assert.Equal(t, 0, result.Evaluations[1].Score)
	assert.Equal(t, 5, result.TotalScore)
	assert.Equal(t, 8, result.MaxScore)
}

func TestJudgeGradeEmptyKey(t *testing.T) {
	judge := NewJudge(&fakeClient{})

	_, err := judge.Grade(context.Background(), &questionkey.Key{}, testAnswers())
	require.Error(t, err)

	gradingErr, ok := err.(GradingError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeEmptyKey, gradingErr.Code)
}
