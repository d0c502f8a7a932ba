package grading

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fyerfyer/exam-grading-system/internal/questionkey"
	"github.com/fyerfyer/exam-grading-system/internal/segment"
)

// 评卷提示词模板
// 要求逐题输出 "Qn: 题干 - 评语 [Right]/[Wrong]" 格式，结果解析器依赖该格式
const evaluationPromptTemplate = `You are an expert exam evaluator. Evaluate the student's answers against the question key.

For each question, provide an evaluation in this format:
Q1: [Question text] - [Right/Wrong with brief explanation]
Q2: [Question text] - [Right/Wrong with brief explanation]

Mark a question [Right] only if the student's answer matches the ideal answer in substance.

Questions:
%s

Student Answers:
%s

Keep it simple and direct.`

// 缺失内容的占位文本
const (
	placeholderNoAnswer   = "[No answer provided]"
	placeholderNoQuestion = "[Question not found in key]"
)

// Judge 评卷器
// 把标准答案和切分后的学生答案组装为评卷提示词，调用大模型并解析结果
type Judge struct {
	client Client
}

// NewJudge 创建评卷器
func NewJudge(client Client) *Judge {
	return &Judge{client: client}
}

// Grade 对一份切分好的答卷评卷
func (j *Judge) Grade(ctx context.Context, key *questionkey.Key, answers *segment.AnswerMap) (*Result, error) {
	if key == nil || len(key.Questions) == 0 {
		return nil, NewGradingError(ErrCodeEmptyKey, ErrMsgEmptyKey)
	}

	prompt := j.BuildPrompt(key, answers)

	raw, err := j.client.Evaluate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return ParseVerdicts(raw, key), nil
}

// BuildPrompt 组装评卷提示词
// 题号取标准答案和学生答案的并集，缺失侧用占位文本标出
func (j *Judge) BuildPrompt(key *questionkey.Key, answers *segment.AnswerMap) string {
	numbers := unionQuestionNumbers(key, answers)

	var questionBlocks []string
	var answerBlocks []string

	for _, number := range numbers {
		if q, ok := key.QuestionByNumber(number); ok {
			block := fmt.Sprintf("Q%s: %s", number, q.Text)
			if q.IdealAnswer != "" {
				block += fmt.Sprintf("\nIdeal Answer: %s", q.IdealAnswer)
			}
			if q.Marks > 0 {
				block += fmt.Sprintf("\nMarks: %d", q.Marks)
			}
			questionBlocks = append(questionBlocks, block)
		} else {
			questionBlocks = append(questionBlocks, fmt.Sprintf("Q%s: %s", number, placeholderNoQuestion))
		}

		if answer, ok := answers.Get(number); ok && strings.TrimSpace(answer) != "" {
			answerBlocks = append(answerBlocks, fmt.Sprintf("Q%s: %s", number, answer))
		} else {
			answerBlocks = append(answerBlocks, fmt.Sprintf("Q%s: %s", number, placeholderNoAnswer))
		}
	}

	return fmt.Sprintf(evaluationPromptTemplate,
		strings.Join(questionBlocks, "\n\n"),
		strings.Join(answerBlocks, "\n\n"))
}

// unionQuestionNumbers 取标准答案和学生答案题号的并集，按数字升序
// 非数字题号排在末尾
func unionQuestionNumbers(key *questionkey.Key, answers *segment.AnswerMap) []string {
	seen := make(map[string]bool)

	for _, id := range key.Order {
		seen[strings.TrimPrefix(id, "Q")] = true
	}
	if answers != nil {
		for _, id := range answers.Keys() {
			seen[id] = true
		}
	}

	numbers := make([]string, 0, len(seen))
	for number := range seen {
		numbers = append(numbers, number)
	}

	sort.Slice(numbers, func(i, j int) bool {
		ni, iErr := strconv.Atoi(numbers[i])
		nj, jErr := strconv.Atoi(numbers[j])
		if iErr == nil && jErr == nil {
			return ni < nj
		}
		if iErr == nil {
			return true
		}
		if jErr == nil {
			return false
		}
		return numbers[i] < numbers[j]
	})

	return numbers
}
