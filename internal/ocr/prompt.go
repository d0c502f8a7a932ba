package ocr

import "strings"

// 答卷转写的基础提示词
// 强调逐行完整转写并保留原始题号，切分器依赖行结构和题号标记工作
const basePrompt = `You are a precision OCR system for exam answer sheets containing handwritten and printed text.
Transcribe everything visible with full completeness. Do not omit or summarize any content.

Rules:
- Transcribe all visible text exactly as written, printed and handwritten.
- Keep original question numbering: Q1, Q2), (a), (i), 1. and so on.
- Preserve line breaks: every new line in the image is a new line in the output.
- Preserve blank lines between questions.
- If a word is unclear, write [illegible].
- If a diagram or table is present, write [Diagram: short description] or [Table: description].
- Never rephrase, interpret, or correct errors.
- Output only the plain text transcription, no commentary.`

// 数学类科目的补充规则
const mathRules = `

Math rules:
- Use Unicode math symbols where written, not LaTeX.
- Keep each equation on its own line with the original spacing.`

// 判定为数学类科目的关键词
var mathSubjects = []string{"math", "physics", "chemistry", "science"}

// PromptForSubject 按科目选择转写提示词
// 数学类科目追加符号转写规则，其余科目使用基础提示词
func PromptForSubject(subject string) string {
	lower := strings.ToLower(subject)
	for _, keyword := range mathSubjects {
		if strings.Contains(lower, keyword) {
			return basePrompt + mathRules
		}
	}
	return basePrompt
}
