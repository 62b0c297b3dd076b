package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type LearningHandler struct {
	planService     *service.PlanService
	progressService *service.ProgressService
}

func NewLearningHandler(planService *service.PlanService, progressService *service.ProgressService) *LearningHandler {
	return &LearningHandler{
		planService:     planService,
		progressService: progressService,
	}
}

// CreatePlan 创建学习计划
// POST /api/v1/plans
func (h *LearningHandler) CreatePlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plan, err := h.planService.CreatePlan(userID, &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "学习计划已创建", plan)
}

// ListPlans 学习计划列表
// GET /api/v1/plans
func (h *LearningHandler) ListPlans(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.planService.ListPlans(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// GetPlan 学习计划详情
// GET /api/v1/plans/:id
func (h *LearningHandler) GetPlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	plan, err := h.planService.GetPlan(userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFoundError(c, "学习计划不存在")
		case errors.Is(err, service.ErrNotPlanOwner):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, plan)
}

// DeletePlan 删除学习计划
// DELETE /api/v1/plans/:id
func (h *LearningHandler) DeletePlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.planService.DeletePlan(userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFoundError(c, "学习计划不存在")
		case errors.Is(err, service.ErrNotPlanOwner):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "已删除", nil)
}

// UpdateProgress 直接校正进度（管理修复入口）
// PUT /api/v1/plans/:id/progress
func (h *LearningHandler) UpdateProgress(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plan, err := h.progressService.UpdateProgress(userID, c.Param("id"), req.CompletedSessions)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFoundError(c, "学习计划不存在")
		case errors.Is(err, service.ErrNotPlanOwner):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "进度已更新", plan)
}

// CompleteSession 上报会话完成（进度推进的唯一入口）
// POST /api/v1/plans/:id/sessions
func (h *LearningHandler) CompleteSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.progressService.CompleteSession(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFoundError(c, "学习计划不存在")
		case errors.Is(err, service.ErrNotPlanOwner):
			response.PermissionError(c, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrPlanPreserved):
			response.PermissionError(c, err.Error())
		case errors.Is(err, service.ErrPlanFinished):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrProgressConflict):
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "会话已记录", resp)
}
