package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// GetStatus 获取订阅状态（含 Stripe 对账与到期保留）
// GET /api/v1/subscription/status
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.subService.GetStatus(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}

// GetLimits 获取当前计费周期的配额视图
// GET /api/v1/subscription/limits
func (h *SubscriptionHandler) GetLimits(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	user, err := h.subService.GetUser(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	limits, err := h.subService.CalculateLimits(user)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, limits)
}

// TrackUsage 记一次用量，配额耗尽时返回配额错误
// POST /api/v1/subscription/track-usage
func (h *SubscriptionHandler) TrackUsage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	allowed, err := h.subService.TrackUsage(userID, req.UsageType)
	if err != nil {
		if errors.Is(err, service.ErrUnknownUsageType) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	if !allowed {
		response.QuotaError(c, service.ErrQuotaExceeded.Error())
		return
	}

	response.Success(c, dto.TrackUsageResponse{Success: true})
}

// CanAccess 查询功能可用性
// GET /api/v1/subscription/can-access/:feature
func (h *SubscriptionHandler) CanAccess(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	allowed, msg, err := h.subService.CanAccessFeature(userID, c.Param("feature"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, dto.FeatureAccess{
		CanAccess: allowed,
		Message:   msg,
	})
}

// ListPlans 套餐列表。登录用户会标出自己当前的套餐
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans := h.subService.Plans()

	if userID, ok := middleware.GetUserID(c); ok {
		if user, err := h.subService.GetUser(userID); err == nil {
			for i := range plans {
				if plans[i].ID == user.SubscriptionPlan {
					plans[i].Current = true
				}
			}
		}
	}

	response.Success(c, plans)
}
