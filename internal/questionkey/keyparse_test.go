package questionkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyText(t *testing.T) {
	text := `Physics Question Key

Q1. What is gravity?
Gravity is the force that attracts objects toward each other.
5 marks

Q2. Explain inertia
Objects resist changes to their state of motion.
3 marks`

	key := ParseKeyText(text)

	assert.Equal(t, "Physics", key.Subject)
	require.Len(t, key.Questions, 2)
	assert.Equal(t, []string{"Q1", "Q2"}, key.Order)

	q1, ok := key.Questions["Q1"]
	require.True(t, ok)
	assert.Equal(t, "What is gravity?", q1.Text)
	assert.Equal(t, "Gravity is the force that attracts objects toward each other.", q1.IdealAnswer)
	assert.Equal(t, 5, q1.Marks)

	q2, ok := key.QuestionByNumber("2")
	require.True(t, ok)
	assert.Equal(t, 3, q2.Marks)

	assert.Equal(t, 8, key.TotalMarks())
}

func TestParseKeyTextDefaultMarks(t *testing.T) {
	key := ParseKeyText("Q1. A question without marks\nthe answer")

	q := key.Questions["Q1"]
	assert.Equal(t, 1, q.Marks, "questions without a marks annotation default to 1")
}

func TestParseKeyTextBareNumbers(t *testing.T) {
	// 裸数字题号需要分隔符，题号按字面值采用
	key := ParseKeyText("1. first question\nanswer one\n3. third question\nanswer three")

	require.Len(t, key.Questions, 2)
	assert.Equal(t, []string{"Q1", "Q3"}, key.Order, "key numbering is trusted literally")
}

func TestParseKeyTextMultilineAnswer(t *testing.T) {
	key := ParseKeyText("Q1. define force\nforce is a push or pull\nthat changes motion")

	q := key.Questions["Q1"]
	assert.Equal(t, "force is a push or pull that changes motion", q.IdealAnswer)
}

func TestParseKeyTextLeadingZeros(t *testing.T) {
	key := ParseKeyText("Q01. padded question\nanswer")

	_, ok := key.Questions["Q1"]
	assert.True(t, ok, "leading zeros are stripped from question numbers")
}

func TestParseKeyTextSubjectDetection(t *testing.T) {
	tests := []struct {
		text    string
		subject string
	}{
		{"Mathematics exam key\nQ1. compute", "Mathematics"},
		{"chemistry revision\nQ1. balance", "Chemistry"},
		{"english literature paper\nQ1. discuss", "English"},
		{"Q1. something neutral", "general"},
	}

	for _, tt := range tests {
		key := ParseKeyText(tt.text)
		assert.Equal(t, tt.subject, key.Subject, "text: %q", tt.text)
	}
}

func TestParseKeyTextEmpty(t *testing.T) {
	key := ParseKeyText("")
	assert.Equal(t, "general", key.Subject)
	assert.Empty(t, key.Questions)
}

func TestParseKeyTextIgnoresPreambleContent(t *testing.T) {
	// 首个题目之前的普通行不归属任何题
	key := ParseKeyText("Grading instructions here\nQ1. the question\nthe answer")

	require.Len(t, key.Questions, 1)
	assert.Equal(t, "the answer", key.Questions["Q1"].IdealAnswer)
}
