package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/exam-grading-system/api/middleware"
	"github.com/fyerfyer/exam-grading-system/api/model"
	"github.com/fyerfyer/exam-grading-system/internal/models"
	"github.com/fyerfyer/exam-grading-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QuestionKeyHandler 处理标准答案相关的API请求
type QuestionKeyHandler struct {
	keyService *services.QuestionKeyService // 标准答案服务
	logger     *logrus.Logger               // 日志记录器
}

// NewQuestionKeyHandler 创建新的标准答案处理器
func NewQuestionKeyHandler(keyService *services.QuestionKeyService) *QuestionKeyHandler {
	return &QuestionKeyHandler{
		keyService: keyService,
		logger:     middleware.GetLogger(),
	}
}

// UploadQuestionKey 处理标准答案上传请求
// POST /api/questionkeys
func (h *QuestionKeyHandler) UploadQuestionKey(c *gin.Context) {
	var req model.QuestionKeyUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Invalid question key upload request")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": req.File.Filename,
		}).Error("Failed to open uploaded file")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"无法打开上传的文件",
		))
		return
	}
	defer file.Close()

	keyModel, err := h.keyService.UploadKey(c.Request.Context(), file, req.File.Filename, req.Name)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": req.File.Filename,
		}).Error("Failed to upload question key")

		// 解析类错误属于客户端问题，返回400
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"标准答案解析失败: "+err.Error(),
		))
		return
	}

	resp := model.QuestionKeyUploadResponse{
		QuestionKeyID: keyModel.ID,
		Name:          keyModel.Name,
		Subject:       keyModel.Subject,
		QuestionCount: keyModel.QuestionCount,
		TotalMarks:    keyModel.TotalMarks,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetQuestionKey 获取标准答案详情
// GET /api/questionkeys/:id
func (h *QuestionKeyHandler) GetQuestionKey(c *gin.Context) {
	var req model.QuestionKeyIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的标准答案ID"))
		return
	}

	keyModel, err := h.keyService.GetKey(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrQuestionKeyNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "标准答案不存在"))
			return
		}

		h.logger.WithFields(logrus.Fields{
			"error":           err.Error(),
			"question_key_id": req.ID,
		}).Error("Failed to get question key")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取标准答案失败",
		))
		return
	}

	resp := model.QuestionKeyInfo{
		QuestionKeyID: keyModel.ID,
		Name:          keyModel.Name,
		Subject:       keyModel.Subject,
		FileName:      keyModel.FileName,
		QuestionCount: keyModel.QuestionCount,
		TotalMarks:    keyModel.TotalMarks,
		CreatedAt:     keyModel.CreatedAt,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ListQuestionKeys 获取标准答案列表
// GET /api/questionkeys
func (h *QuestionKeyHandler) ListQuestionKeys(c *gin.Context) {
	var req model.QuestionKeyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的查询参数"))
		return
	}

	keys, total, err := h.keyService.ListKeys(c.Request.Context(), req.GetOffset(), req.GetPageSize())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list question keys")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取标准答案列表失败",
		))
		return
	}

	items := make([]model.QuestionKeyInfo, 0, len(keys))
	for _, keyModel := range keys {
		items = append(items, model.QuestionKeyInfo{
			QuestionKeyID: keyModel.ID,
			Name:          keyModel.Name,
			Subject:       keyModel.Subject,
			FileName:      keyModel.FileName,
			QuestionCount: keyModel.QuestionCount,
			TotalMarks:    keyModel.TotalMarks,
			CreatedAt:     keyModel.CreatedAt,
		})
	}

	resp := model.QuestionKeyListResponse{
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Keys:     items,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteQuestionKey 删除标准答案
// DELETE /api/questionkeys/:id
func (h *QuestionKeyHandler) DeleteQuestionKey(c *gin.Context) {
	var req model.QuestionKeyIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的标准答案ID"))
		return
	}

	if err := h.keyService.DeleteKey(c.Request.Context(), req.ID); err != nil {
		if errors.Is(err, models.ErrQuestionKeyNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "标准答案不存在"))
			return
		}

		h.logger.WithFields(logrus.Fields{
			"error":           err.Error(),
			"question_key_id": req.ID,
		}).Error("Failed to delete question key")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"删除标准答案失败",
		))
		return
	}

	h.logger.WithField("question_key_id", req.ID).Info("Question key deleted successfully")

	resp := model.QuestionKeyDeleteResponse{
		Success:       true,
		QuestionKeyID: req.ID,
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
