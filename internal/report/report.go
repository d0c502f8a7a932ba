package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/fyerfyer/exam-grading-system/internal/grading"
)

// Report 评卷报告
type Report struct {
	SubmissionID string               `json:"submission_id"` // 答卷ID
	Subject      string               `json:"subject"`       // 科目
	TotalScore   int                  `json:"total_score"`   // 总得分
	MaxScore     int                  `json:"max_score"`     // 总满分
	Percentage   float64              `json:"percentage"`    // 得分率
	Evaluations  []grading.Evaluation `json:"evaluations"`   // 逐题评估
}

// Build 从评卷结果组装报告
func Build(submissionID string, subject string, result *grading.Result) *Report {
	r := &Report{
		SubmissionID: submissionID,
		Subject:      subject,
	}
	if result == nil {
		return r
	}

	r.TotalScore = result.TotalScore
	r.MaxScore = result.MaxScore
	r.Evaluations = result.Evaluations
	if r.MaxScore > 0 {
		r.Percentage = float64(r.TotalScore) / float64(r.MaxScore) * 100
	}
	return r
}

// Summary 报告的单行文字摘要
func (r *Report) Summary() string {
	return fmt.Sprintf("score %d/%d (%.1f%%), %d questions evaluated",
		r.TotalScore, r.MaxScore, r.Percentage, len(r.Evaluations))
}

// RenderPDF 把报告渲染为PDF
func (r *Report) RenderPDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Grading Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Submission: %s", r.SubmissionID))
	pdf.Ln(8)
	if r.Subject != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Subject: %s", r.Subject))
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Total Score: %d / %d (%.1f%%)", r.TotalScore, r.MaxScore, r.Percentage))
	pdf.Ln(14)

	for _, eval := range r.Evaluations {
		pdf.SetFont("Arial", "B", 11)
		verdict := "Wrong"
		if eval.Correct {
			verdict = "Right"
		}
		pdf.Cell(0, 8, fmt.Sprintf("%s  [%s]  %d/%d", eval.QuestionNumber, verdict, eval.Score, eval.MaxScore))
		pdf.Ln(7)

		pdf.SetFont("Arial", "", 10)
		if eval.Question != "" {
			pdf.MultiCell(0, 5, sanitizeText(eval.Question), "", "", false)
		}
		if eval.Assessment != "" {
			pdf.MultiCell(0, 5, sanitizeText(eval.Assessment), "", "", false)
		}
		pdf.Ln(4)
	}

	return pdf.Output(w)
}

// sanitizeText 替换标准字体渲染不了的字符
// gofpdf内置字体仅支持单字节编码，超出范围的字符替换为占位符
func sanitizeText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r < 0x80 {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
