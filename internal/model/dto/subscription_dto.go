package dto

// UsageQuota 单类用量的配额视图，limit -1 表示不限量
type UsageQuota struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"` // limit 为 -1 时同为 -1
}

// SubscriptionLimits 当前计费周期内的配额视图
type SubscriptionLimits struct {
	Plan             string     `json:"plan"`
	Period           string     `json:"period"`
	PracticeSessions UsageQuota `json:"practice_sessions"`
	Assessments      UsageQuota `json:"assessments"`
	PeriodStart      string     `json:"period_start,omitempty"`
	PeriodEnd        string     `json:"period_end,omitempty"`
}

// SubscriptionStatus 订阅状态视图
type SubscriptionStatus struct {
	Plan                  string              `json:"plan"`
	Period                string              `json:"period"`
	Status                string              `json:"status"`
	Limits                *SubscriptionLimits `json:"limits"`
	LearningPlanPreserved bool                `json:"learning_plan_preserved"`
	DaysUntilExpiry       *int                `json:"days_until_expiry,omitempty"`
	ExpiryWarning         string              `json:"expiry_warning,omitempty"`
}

// TrackUsageRequest 用量上报请求
type TrackUsageRequest struct {
	UsageType string `json:"usage_type" binding:"required,oneof=practice_session assessment"`
}

// TrackUsageResponse 用量上报响应
type TrackUsageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FeatureAccess 功能可用性
type FeatureAccess struct {
	CanAccess bool   `json:"can_access"`
	Message   string `json:"message,omitempty"`
}

// PlanInfo 套餐静态信息
type PlanInfo struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"display_name"`
	MonthlyPrice     float64  `json:"monthly_price"`
	AnnualPrice      float64  `json:"annual_price"`
	PracticeSessions int      `json:"practice_sessions"`
	Assessments      int      `json:"assessments"`
	Features         []string `json:"features"`
	Current          bool     `json:"current,omitempty"`
}

// CheckoutRequest 发起订阅购买
type CheckoutRequest struct {
	Plan   string `json:"plan" binding:"required,oneof=fluency_builder team_mastery"`
	Period string `json:"period" binding:"required,oneof=monthly annual"`
}

// CheckoutResponse Stripe Checkout 跳转地址
type CheckoutResponse struct {
	URL string `json:"url"`
}
