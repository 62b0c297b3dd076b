package handler

import (
	"errors"
	"io"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// Checkout 发起订阅购买
// POST /api/v1/billing/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	url, err := h.billingService.CreateCheckout(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrBillingDisabled) {
			response.ServerError(c, err.Error())
			return
		}
		log.Printf("checkout failed for user %d: %v", userID, err)
		response.ServerError(c, "创建支付会话失败")
		return
	}

	response.Success(c, dto.CheckoutResponse{URL: url})
}

// Portal 跳转订阅管理页
// POST /api/v1/billing/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	url, err := h.billingService.CreatePortal(userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillingDisabled):
			response.ServerError(c, err.Error())
		case errors.Is(err, service.ErrNoSubscription):
			response.ParamError(c, err.Error())
		default:
			log.Printf("portal failed for user %d: %v", userID, err)
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.CheckoutResponse{URL: url})
}

// Webhook Stripe 事件回调（签名校验，无需登录态）
// POST /api/v1/billing/webhook
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(400)
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.billingService.HandleWebhook(payload, signature); err != nil {
		// 细节只进日志，Stripe 按状态码重试
		log.Printf("webhook handling failed: %v", err)
		c.Status(400)
		return
	}

	c.Status(200)
}
