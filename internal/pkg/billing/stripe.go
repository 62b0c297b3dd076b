package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/qs3c/lingo_go_server/config"
)

// Client Stripe 访问层。账务真相在 Stripe，这里只做读取与跳转，
// 状态回写统一走 webhook。
type Client struct {
	cfg *config.StripeConfig
}

func NewClient(cfg *config.StripeConfig) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// Enabled 是否配置了 Stripe（本地开发可以不配）
func (c *Client) Enabled() bool {
	return c.cfg.SecretKey != ""
}

// EnsureCustomer 查找或创建 Stripe Customer，返回 customer id
func (c *Client) EnsureCustomer(existingID string, userID int64, email string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": fmt.Sprintf("%d", userID),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// PriceID 套餐+周期对应的 price id
func (c *Client) PriceID(plan, period string) (string, error) {
	key := plan + "_" + period
	priceID, ok := c.cfg.PriceIDs[key]
	if !ok || priceID == "" {
		return "", fmt.Errorf("no price configured for %s", key)
	}
	return priceID, nil
}

// NewCheckoutSession 创建订阅购买的 Checkout Session，返回跳转 URL
func (c *Client) NewCheckoutSession(customerID, priceID string) (string, error) {
	frontendURL := strings.TrimRight(c.cfg.FrontendURL, "/")

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}

// NewPortalSession 创建 Billing Portal Session，返回跳转 URL
func (c *Client) NewPortalSession(customerID string) (string, error) {
	frontendURL := strings.TrimRight(c.cfg.FrontendURL, "/")

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(frontendURL + "/account"),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess.URL, nil
}

// GetSubscription 读取订阅对象（状态对账用）
func (c *Client) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return subscription.Get(subscriptionID, nil)
}

// VerifyWebhook 校验 webhook 签名并解析事件
func (c *Client) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}
