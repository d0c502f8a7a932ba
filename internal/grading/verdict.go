package grading

import (
	"strings"

	"github.com/fyerfyer/exam-grading-system/internal/questionkey"
)

// ParseVerdicts 解析评卷模型的原始输出为结构化结果
// 预期行格式 "Qn: 题干 - 评语 [Right]/[Wrong]"，
// 缺少标记时回退到评语中的 correct/incorrect 关键词判定，
// 判对的题按标准答案的分值计分
func ParseVerdicts(raw string, key *questionkey.Key) *Result {
	result := &Result{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Q") || !strings.Contains(line, ":") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		number := strings.TrimSpace(parts[0])
		content := strings.TrimSpace(parts[1])

		if !isQuestionNumber(number) {
			continue
		}

		eval := Evaluation{
			QuestionNumber: number,
			MaxScore:       1,
		}

		if q, ok := key.Questions[number]; ok && q.Marks > 0 {
			eval.MaxScore = q.Marks
		}

		if question, assessment, ok := strings.Cut(content, " - "); ok {
			eval.Question = strings.TrimSpace(question)
			eval.Assessment = strings.TrimSpace(assessment)
			eval.Correct = assessVerdict(eval.Assessment)
		} else {
			// 无法拆分的行按未判对处理，保留原文供人工复核
			eval.Assessment = content
		}

		if eval.Correct {
			eval.Score = eval.MaxScore
		}

		result.Evaluations = append(result.Evaluations, eval)
		result.TotalScore += eval.Score
		result.MaxScore += eval.MaxScore
	}

	return result
}

// assessVerdict 判定评语的对错
func assessVerdict(assessment string) bool {
	if strings.Contains(assessment, "[Right]") {
		return true
	}
	if strings.Contains(assessment, "[Wrong]") {
		return false
	}

	// 回退到关键词判定
	lower := strings.ToLower(assessment)
	return strings.Contains(lower, "correct") && !strings.Contains(lower, "incorrect")
}

// isQuestionNumber 判断是否为 "Q" 加数字的题号
func isQuestionNumber(s string) bool {
	if len(s) < 2 || s[0] != 'Q' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
