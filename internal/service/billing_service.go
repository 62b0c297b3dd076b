package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/billing"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

var (
	ErrBillingDisabled = errors.New("支付功能未开通")
	ErrNoSubscription  = errors.New("当前没有有效订阅")
)

// BillingService Stripe 购买流程与 webhook 状态回写。
// 账务真相在 Stripe，本地只存订阅关联与审计记录。
type BillingService struct {
	userRepo    *repository.UserRepository
	paymentRepo *repository.PaymentRepository
	stripe      *billing.Client
	cfg         *config.Config
}

func NewBillingService(
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	stripeClient *billing.Client,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		stripe:      stripeClient,
		cfg:         cfg,
	}
}

// CreateCheckout 创建订阅购买会话，返回 Stripe Checkout 跳转地址
func (s *BillingService) CreateCheckout(userID int64, req *dto.CheckoutRequest) (string, error) {
	if s.stripe == nil || !s.stripe.Enabled() {
		return "", ErrBillingDisabled
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	customerID, err := s.stripe.EnsureCustomer(user.StripeCustomerID, user.ID, email)
	if err != nil {
		return "", err
	}
	if customerID != user.StripeCustomerID {
		if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
			"stripe_customer_id": customerID,
		}); err != nil {
			return "", err
		}
	}

	priceID, err := s.stripe.PriceID(req.Plan, req.Period)
	if err != nil {
		return "", err
	}

	return s.stripe.NewCheckoutSession(customerID, priceID)
}

// CreatePortal 创建 Billing Portal 会话（管理/取消订阅入口）
func (s *BillingService) CreatePortal(userID int64) (string, error) {
	if s.stripe == nil || !s.stripe.Enabled() {
		return "", ErrBillingDisabled
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", ErrNoSubscription
	}

	return s.stripe.NewPortalSession(user.StripeCustomerID)
}

// HandleWebhook 校验签名并分发 Stripe 事件
func (s *BillingService) HandleWebhook(payload []byte, signature string) error {
	if s.stripe == nil || !s.stripe.Enabled() {
		return ErrBillingDisabled
	}

	event, err := s.stripe.VerifyWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("webhook verification failed: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(event.Data.Raw)
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionChanged(event.Data.Raw)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(event.Data.Raw)
	case "invoice.paid", "invoice.payment_succeeded":
		return s.handleInvoicePaid(event.Data.Raw)
	default:
		// 未订阅的事件类型直接确认
		return nil
	}
}

// handleCheckoutCompleted 记下订阅 ID，套餐变更由 subscription 事件处理
func (s *BillingService) handleCheckoutCompleted(raw json.RawMessage) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return err
	}
	if sess.Customer == nil || sess.Subscription == nil {
		return nil
	}

	user, err := s.userRepo.GetByStripeCustomerID(sess.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("checkout completed for unknown customer %s", sess.Customer.ID)
			return nil
		}
		return err
	}

	return s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"stripe_subscription_id": sess.Subscription.ID,
	})
}

// handleSubscriptionChanged 把 Stripe 订阅状态回写到用户：
// 套餐与周期由 price id 反查，窗口与状态取 Stripe 的值。
// 订阅恢复生效时解除学习计划保留并清零用量。
func (s *BillingService) handleSubscriptionChanged(raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	user, err := s.userRepo.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("subscription event for unknown customer %s", sub.Customer.ID)
			return nil
		}
		return err
	}

	status := mapStripeStatus(&sub)
	periodStart := time.Unix(sub.CurrentPeriodStart, 0).UTC()
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()

	fields := map[string]interface{}{
		"stripe_subscription_id": sub.ID,
		"subscription_status":    status,
		"current_period_start":   periodStart,
		"current_period_end":     periodEnd,
	}

	if plan, period, ok := s.planFromPrice(&sub); ok {
		fields["subscription_plan"] = plan
		fields["subscription_period"] = period
	}

	// 重新订阅：解冻保留的学习计划，新周期从零用量开始
	if (status == model.SubStatusActive || status == model.SubStatusTrialing) && user.LearningPlanPreserved {
		fields["learning_plan_preserved"] = false
		fields["practice_sessions_used"] = 0
		fields["assessments_used"] = 0
	}

	return s.userRepo.UpdateFields(user.ID, fields)
}

func (s *BillingService) handleSubscriptionDeleted(raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	user, err := s.userRepo.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	// 只标记取消，计划保留由 GetStatus 的到期检测统一触发
	return s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"subscription_status": model.SubStatusCanceled,
	})
}

// handleInvoicePaid 落一条审计记录，invoice id 去重保证幂等
func (s *BillingService) handleInvoicePaid(raw json.RawMessage) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return err
	}
	if inv.Customer == nil || inv.ID == "" {
		return nil
	}

	exists, err := s.paymentRepo.ExistsByInvoiceID(inv.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	user, err := s.userRepo.GetByStripeCustomerID(inv.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return s.paymentRepo.Create(&model.Payment{
		UserID:          user.ID,
		Plan:            user.SubscriptionPlan,
		Period:          user.SubscriptionPeriod,
		Amount:          float64(inv.AmountPaid) / 100,
		Currency:        string(inv.Currency),
		StripeInvoiceID: inv.ID,
		Status:          "paid",
	})
}

// planFromPrice 用订阅条目的 price id 反查套餐与周期
func (s *BillingService) planFromPrice(sub *stripe.Subscription) (string, string, bool) {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return "", "", false
	}
	priceID := sub.Items.Data[0].Price.ID

	for key, id := range s.cfg.Stripe.PriceIDs {
		if id != priceID {
			continue
		}
		// key 形如 fluency_builder_monthly
		for _, period := range []string{model.PeriodMonthly, model.PeriodAnnual} {
			suffix := "_" + period
			if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
				return key[:len(key)-len(suffix)], period, true
			}
		}
	}
	return "", "", false
}
