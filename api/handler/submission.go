package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/exam-grading-system/api/middleware"
	"github.com/fyerfyer/exam-grading-system/api/model"
	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SubmissionHandler 处理答卷相关的API请求
type SubmissionHandler struct {
	submissionService *services.SubmissionService // 答卷服务
	logger            *logrus.Logger              // 日志记录器
}

// NewSubmissionHandler 创建新的答卷处理器
func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		logger:            middleware.GetLogger(),
	}
}

// UploadSubmission 处理答卷上传请求
// POST /api/submissions
func (h *SubmissionHandler) UploadSubmission(c *gin.Context) {
	// 绑定请求参数
	var req model.SubmissionUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Invalid submission upload request")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	// 检查文件类型
	filename := req.File.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	if !isValidSubmissionType(ext) {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型，仅支持 .pdf, .png, .jpg, .jpeg",
		))
		return
	}

	// 打开上传的文件
	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to open uploaded file")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"无法打开上传的文件",
		))
		return
	}
	defer file.Close()

	// 保存答卷并创建记录
	sub, err := h.submissionService.UploadSubmission(c.Request.Context(), file, filename, req.QuestionKeyID, req.StudentName)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":           err.Error(),
			"filename":        filename,
			"question_key_id": req.QuestionKeyID,
		}).Error("Failed to upload submission")

		if errors.Is(err, models.ErrQuestionKeyNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(
				http.StatusNotFound,
				"标准答案不存在",
			))
			return
		}

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"保存答卷失败",
		))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"filename":      sub.FileName,
		"size":          sub.FileSize,
	}).Info("Submission uploaded successfully")

	// 按需求同步等待或交给流水线处理
	if req.Wait {
		if err := h.submissionService.ProcessSubmission(c.Request.Context(), sub.ID); err != nil {
			h.logger.WithFields(logrus.Fields{
				"error":         err.Error(),
				"submission_id": sub.ID,
			}).Error("Failed to process submission")

			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
				http.StatusInternalServerError,
				"答卷处理失败",
			))
			return
		}
	} else {
		// 请求结束后继续处理，不能复用请求上下文
		go func(id string) {
			h.logger.WithField("submission_id", id).Info("Starting submission processing")
			if err := h.submissionService.ProcessSubmission(context.Background(), id); err != nil {
				h.logger.WithFields(logrus.Fields{
					"error":         err.Error(),
					"submission_id": id,
				}).Error("Failed to process submission")
			}
		}(sub.ID)
	}

	// 处理完或入队后重新读取状态
	status, err := h.submissionService.GetSubmissionStatus(c.Request.Context(), sub.ID)
	if err != nil {
		status = sub.Status
	}

	resp := model.SubmissionUploadResponse{
		SubmissionID: sub.ID,
		FileName:     sub.FileName,
		Status:       string(status),
	}
	if sub.CurrentTaskID != "" {
		resp.TaskID = sub.CurrentTaskID
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetSubmissionStatus 获取答卷处理状态
// GET /api/submissions/:id/status
func (h *SubmissionHandler) GetSubmissionStatus(c *gin.Context) {
	var req model.SubmissionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的答卷ID"))
		return
	}

	info, err := h.submissionService.GetSubmissionInfo(c.Request.Context(), req.ID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":         err.Error(),
			"submission_id": req.ID,
		}).Error("Failed to get submission info")

		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "未找到答卷或获取信息失败"))
		return
	}

	resp := model.SubmissionStatusResponse{
		SubmissionID: req.ID,
		Status:       string(info["status"].(models.SubmissionStatus)),
		Stage:        string(info["stage"].(models.ProcessStage)),
		FileName:     info["filename"].(string),
		PageCount:    info["page_count"].(int),
		CreatedAt:    info["created_at"].(string),
		UpdatedAt:    info["updated_at"].(string),
	}

	if errMsg, ok := info["error"]; ok {
		resp.Error = errMsg.(string)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ListSubmissions 获取答卷列表
// GET /api/submissions
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	var req model.SubmissionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的查询参数"))
		return
	}

	// 构建过滤条件
	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = models.SubmissionStatus(req.Status)
	}
	if req.QuestionKeyID != "" {
		filters["question_key_id"] = req.QuestionKeyID
	}
	if req.StartTime != nil {
		filters["start_time"] = req.StartTime.Format(time.RFC3339)
	}
	if req.EndTime != nil {
		filters["end_time"] = req.EndTime.Format(time.RFC3339)
	}

	subs, total, err := h.submissionService.ListSubmissions(c.Request.Context(), req.GetOffset(), req.GetPageSize(), filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list submissions")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取答卷列表失败",
		))
		return
	}

	items := make([]model.SubmissionInfo, 0, len(subs))
	for _, sub := range subs {
		items = append(items, model.SubmissionInfo{
			SubmissionID:  sub.ID,
			StudentName:   sub.StudentName,
			QuestionKeyID: sub.QuestionKeyID,
			FileName:      sub.FileName,
			Status:        string(sub.Status),
			TotalScore:    sub.TotalScore,
			MaxScore:      sub.MaxScore,
			UploadTime:    sub.UploadedAt,
		})
	}

	resp := model.SubmissionListResponse{
		Total:       total,
		Page:        req.GetPage(),
		PageSize:    req.GetPageSize(),
		Submissions: items,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetSubmissionResult 获取评卷结果
// GET /api/submissions/:id/result
func (h *SubmissionHandler) GetSubmissionResult(c *gin.Context) {
	var req model.SubmissionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的答卷ID"))
		return
	}

	r, err := h.submissionService.GetSubmissionResult(c.Request.Context(), req.ID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":         err.Error(),
			"submission_id": req.ID,
		}).Warn("Failed to get submission result")

		if strings.Contains(err.Error(), "not graded yet") {
			c.JSON(http.StatusConflict, model.NewErrorResponse(
				http.StatusConflict,
				"答卷尚未完成评卷",
			))
			return
		}

		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "未找到答卷或评卷结果"))
		return
	}

	resp := model.SubmissionResultResponse{
		SubmissionID: r.SubmissionID,
		Subject:      r.Subject,
		TotalScore:   r.TotalScore,
		MaxScore:     r.MaxScore,
		Percentage:   r.Percentage,
		Summary:      r.Summary(),
		Evaluations:  r.Evaluations,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// RegradeSubmission 基于已有转写结果重新评卷
// POST /api/submissions/:id/regrade
func (h *SubmissionHandler) RegradeSubmission(c *gin.Context) {
	var req model.SubmissionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的答卷ID"))
		return
	}

	if err := h.submissionService.RegradeSubmission(c.Request.Context(), req.ID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":         err.Error(),
			"submission_id": req.ID,
		}).Error("Failed to regrade submission")

		if errors.Is(err, models.ErrSubmissionNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "未找到答卷"))
			return
		}

		if strings.Contains(err.Error(), "no transcribed pages") {
			c.JSON(http.StatusConflict, model.NewErrorResponse(
				http.StatusConflict,
				"答卷尚无转写结果，无法重新评卷",
			))
			return
		}

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"重新评卷失败",
		))
		return
	}

	status, err := h.submissionService.GetSubmissionStatus(c.Request.Context(), req.ID)
	if err != nil {
		status = models.SubStatusProcessing
	}

	resp := model.SubmissionRegradeResponse{
		SubmissionID: req.ID,
		Status:       string(status),
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DownloadSubmissionReport 下载PDF评卷报告
// GET /api/submissions/:id/report
func (h *SubmissionHandler) DownloadSubmissionReport(c *gin.Context) {
	var req model.SubmissionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的答卷ID"))
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="report-`+req.ID+`.pdf"`)

	if err := h.submissionService.RenderSubmissionReport(c.Request.Context(), req.ID, c.Writer); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":         err.Error(),
			"submission_id": req.ID,
		}).Error("Failed to render submission report")

		c.Header("Content-Type", "application/json")
		c.Header("Content-Disposition", "")
		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "生成报告失败"))
		return
	}
}

// DeleteSubmission 删除答卷
// DELETE /api/submissions/:id
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	var req model.SubmissionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的答卷ID"))
		return
	}

	if err := h.submissionService.DeleteSubmission(c.Request.Context(), req.ID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":         err.Error(),
			"submission_id": req.ID,
		}).Error("Failed to delete submission")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"删除答卷失败",
		))
		return
	}

	h.logger.WithField("submission_id", req.ID).Info("Submission deleted successfully")

	resp := model.SubmissionDeleteResponse{
		Success:      true,
		SubmissionID: req.ID,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetAnalytics 获取答卷统计汇总
// GET /api/analytics
func (h *SubmissionHandler) GetAnalytics(c *gin.Context) {
	stats, err := h.submissionService.GetAnalytics(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get submission analytics")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取统计数据失败",
		))
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	resp := model.AnalyticsResponse{
		Total:             stats.Total,
		ByStatus:          byStatus,
		AveragePercentage: stats.AveragePercentage,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// isValidSubmissionType 检查答卷文件类型是否有效
func isValidSubmissionType(ext string) bool {
	validTypes := map[string]bool{
		".pdf":  true,
		".png":  true,
		".jpg":  true,
		".jpeg": true,
	}
	return validTypes[ext]
}
