package models

import "errors"

var (
	// ErrSubmissionNotFound 答卷不存在错误
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrQuestionKeyNotFound 标准答案不存在错误
	ErrQuestionKeyNotFound = errors.New("question key not found")

	// ErrInvalidSubmissionStatus 无效的答卷状态错误
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")
)
