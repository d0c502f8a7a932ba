package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdicts(t *testing.T) {
	raw := `Q1: What is gravity? - Matches the ideal answer [Right]
Q2: Explain inertia - The student confused mass and inertia [Wrong]`

	result := ParseVerdicts(raw, testKey())

	require.Len(t, result.Evaluations, 2)

	first := result.Evaluations[0]
	assert.Equal(t, "Q1", first.QuestionNumber)
	assert.Equal(t, "What is gravity?", first.Question)
	assert.True(t, first.Correct)
	assert.Equal(t, 5, first.Score)
	assert.Equal(t, 5, first.MaxScore)

	second := result.Evaluations[1]
	assert.False(t, second.Correct)
	assert.Equal(t, 0, second.Score)
	assert.Equal(t, 3, second.MaxScore)

	assert.Equal(t, 5, result.TotalScore)
	assert.Equal(t, 8, result.MaxScore)
}

func TestParseVerdictsKeywordFallback(t *testing.T) {
	// 没有[Right]/[Wrong]标记时回退到关键词判定
	raw := `Q1: What is gravity? - The answer is correct in substance
Q2: Explain inertia - This answer is incorrect`

	result := ParseVerdicts(raw, testKey())

	require.Len(t, result.Evaluations, 2)
	assert.True(t, result.Evaluations[0].Correct)
	assert.False(t, result.Evaluations[1].Correct)
}

func TestParseVerdictsSkipsNoise(t *testing.T) {
	raw := `Here is my evaluation of the answers:

Q1: What is gravity? - Good answer [Right]

Overall the student did well.
Quality note: no question number here`

	result := ParseVerdicts(raw, testKey())

	require.Len(t, result.Evaluations, 1)
	assert.Equal(t, "Q1", result.Evaluations[0].QuestionNumber)
}

func TestParseVerdictsUnparseableLine(t *testing.T) {
	// 缺少" - "分隔的行按未判对保留原文
	raw := `Q1: something without the separator marker`

	result := ParseVerdicts(raw, testKey())

	require.Len(t, result.Evaluations, 1)
	assert.False(t, result.Evaluations[0].Correct)
	assert.Equal(t, 0, result.Evaluations[0].Score)
	assert.NotEmpty(t, result.Evaluations[0].Assessment)
}

func TestParseVerdictsUnknownQuestionDefaultsToOneMark(t *testing.T) {
	raw := `Q9: An extra question - Somehow answered [Right]`

	result := ParseVerdicts(raw, testKey())

	require.Len(t, result.Evaluations, 1)
	assert.Equal(t, 1, result.Evaluations[0].MaxScore)
	assert.Equal(t, 1, result.Evaluations[0].Score)
}

func TestParseVerdictsEmptyOutput(t *testing.T) {
	result := ParseVerdicts("", testKey())

	assert.Empty(t, result.Evaluations)
	assert.Equal(t, 0, result.TotalScore)
	assert.Equal(t, 0, result.MaxScore)
}
