package model

import (
	"time"
)

// 订阅套餐
const (
	PlanTryLearn       = "try_learn"
	PlanFluencyBuilder = "fluency_builder"
	PlanTeamMastery    = "team_mastery"
)

// 计费周期
const (
	PeriodMonthly = "monthly"
	PeriodAnnual  = "annual"
)

// 订阅状态（与 Stripe 对齐）
const (
	SubStatusActive     = "active"
	SubStatusTrialing   = "trialing"
	SubStatusCanceling  = "canceling"
	SubStatusExpired    = "expired"
	SubStatusIncomplete = "incomplete"
	SubStatusCanceled   = "canceled"
	SubStatusPastDue    = "past_due"
)

// 用量类型
const (
	UsagePracticeSession = "practice_session"
	UsageAssessment      = "assessment"
)

type User struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	Username     string  `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        *string `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash *string `gorm:"size:255" json:"-"`
	AvatarURL    string  `gorm:"size:500" json:"avatar_url"`
	NativeLang   string  `gorm:"size:20" json:"native_language"`
	GithubID     *string `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`

	// 订阅与用量
	SubscriptionPlan     string     `gorm:"size:30;default:try_learn" json:"subscription_plan"`
	SubscriptionPeriod   string     `gorm:"size:10;default:monthly" json:"subscription_period"`
	SubscriptionStatus   string     `gorm:"size:20;default:active" json:"subscription_status"`
	PracticeSessionsUsed int        `gorm:"default:0" json:"practice_sessions_used"`
	AssessmentsUsed      int        `gorm:"default:0" json:"assessments_used"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`

	// Stripe 关联
	StripeCustomerID     string `gorm:"size:100;index" json:"-"`
	StripeSubscriptionID string `gorm:"size:100;index" json:"-"`

	// 订阅失效后保留的学习计划快照
	LearningPlanPreserved bool `gorm:"default:false" json:"learning_plan_preserved"`
	LearningPlanData      JSON `gorm:"type:json" json:"-"`
	LearningPlanProgress  JSON `gorm:"type:json" json:"-"`

	EmailVerified         bool       `gorm:"default:false" json:"email_verified"`
	VerificationCode      *string    `gorm:"size:100" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
