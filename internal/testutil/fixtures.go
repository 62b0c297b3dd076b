package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

// TestUser 创建测试用户，默认免费档、当前自然月窗口
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	user := &model.User{
		Username:           fmt.Sprintf("testuser_%d", time.Now().UnixNano()%1000000),
		Email:              &email,
		PasswordHash:       &passwordHash,
		SubscriptionPlan:   model.PlanTryLearn,
		SubscriptionPeriod: model.PeriodMonthly,
		SubscriptionStatus: model.SubStatusActive,
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
		EmailVerified:      true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPlan 设置订阅套餐
func WithPlan(plan, period, status string) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionPlan = plan
		u.SubscriptionPeriod = period
		u.SubscriptionStatus = status
	}
}

// WithUsage 设置已使用用量
func WithUsage(practiceSessions, assessments int) func(*model.User) {
	return func(u *model.User) {
		u.PracticeSessionsUsed = practiceSessions
		u.AssessmentsUsed = assessments
	}
}

// WithPeriodWindow 设置计费窗口
func WithPeriodWindow(start, end time.Time) func(*model.User) {
	return func(u *model.User) {
		u.CurrentPeriodStart = &start
		u.CurrentPeriodEnd = &end
	}
}

// WithStripe 设置 Stripe 关联
func WithStripe(customerID, subscriptionID string) func(*model.User) {
	return func(u *model.User) {
		u.StripeCustomerID = customerID
		u.StripeSubscriptionID = subscriptionID
	}
}

// WithPreserved 设置学习计划保留标记
func WithPreserved(preserved bool) func(*model.User) {
	return func(u *model.User) {
		u.LearningPlanPreserved = preserved
	}
}

// TestPlan 创建测试学习计划，默认 1 个月（4 周 8 次会话）
func TestPlan(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.LearningPlan)) *model.LearningPlan {
	t.Helper()

	weeks := 4
	schedule := make(model.WeekList, 0, weeks)
	for i := 0; i < weeks; i++ {
		schedule = append(schedule, model.Week{
			Focus:         fmt.Sprintf("第 %d 周：测试主题", i+1),
			Activities:    []string{"对话练习", "词汇巩固"},
			TotalSessions: model.SessionsPerWeek,
		})
	}

	plan := &model.LearningPlan{
		ID:               uuid.New().String(),
		UserID:           userID,
		Language:         "english",
		ProficiencyLevel: "B1",
		Goals:            model.StringArray{"travel"},
		DurationMonths:   1,
		TotalSessions:    weeks * model.SessionsPerWeek,
		WeeklySchedule:   schedule,
		SessionSummaries: model.StringArray{},
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithDuration 设置计划时长（月），总会话数随之调整
func WithDuration(months int) func(*model.LearningPlan) {
	return func(p *model.LearningPlan) {
		weeks := months * 4
		p.DurationMonths = months
		p.TotalSessions = weeks * model.SessionsPerWeek

		schedule := make(model.WeekList, 0, weeks)
		for i := 0; i < weeks; i++ {
			schedule = append(schedule, model.Week{
				Focus:         fmt.Sprintf("第 %d 周：测试主题", i+1),
				Activities:    []string{"对话练习"},
				TotalSessions: model.SessionsPerWeek,
			})
		}
		p.WeeklySchedule = schedule
	}
}

// WithCompleted 设置已完成会话数并同步进度字段
func WithCompleted(completed int) func(*model.LearningPlan) {
	return func(p *model.LearningPlan) {
		p.CompletedSessions = completed
		if p.TotalSessions > 0 {
			p.ProgressPercentage = float64(completed) / float64(p.TotalSessions) * 100
		}

		remaining := completed
		for i := range p.WeeklySchedule {
			week := &p.WeeklySchedule[i]
			if remaining >= week.TotalSessions {
				week.SessionsCompleted = week.TotalSessions
				remaining -= week.TotalSessions
			} else {
				week.SessionsCompleted = remaining
				remaining = 0
			}
		}

		for i := 0; i < completed; i++ {
			p.SessionSummaries = append(p.SessionSummaries, fmt.Sprintf("第 %d 次会话摘要", i+1))
		}
	}
}

// WithLanguage 设置学习语言
func WithLanguage(language string) func(*model.LearningPlan) {
	return func(p *model.LearningPlan) {
		p.Language = language
	}
}

// TestSession 创建测试会话记录
func TestSession(t *testing.T, db *gorm.DB, userID int64, planID string, opts ...func(*model.ConversationSession)) *model.ConversationSession {
	t.Helper()

	session := &model.ConversationSession{
		ID:       uuid.New().String(),
		UserID:   userID,
		PlanID:   planID,
		Language: "english",
		Topic:    "测试话题",
		Messages: model.MessageList{
			{Role: "user", Content: "Hello, I want to practice ordering food."},
			{Role: "assistant", Content: "Great! Let's start. What would you like to order?"},
		},
		DurationSeconds: 300,
	}

	for _, opt := range opts {
		opt(session)
	}

	if err := db.Create(session).Error; err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return session
}

// WithTopic 设置会话话题
func WithTopic(topic string) func(*model.ConversationSession) {
	return func(s *model.ConversationSession) {
		s.Topic = topic
	}
}

// WithSummary 设置会话摘要
func WithSummary(summary string) func(*model.ConversationSession) {
	return func(s *model.ConversationSession) {
		s.Summary = summary
	}
}

// TestJob 创建测试摘要任务
func TestJob(t *testing.T, db *gorm.DB, userID int64, sessionID, planID, status string) *model.SummaryJob {
	t.Helper()

	job := &model.SummaryJob{
		SessionID: sessionID,
		PlanID:    planID,
		UserID:    userID,
		WeekFocus: "第 1 周：测试主题",
		Status:    status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
