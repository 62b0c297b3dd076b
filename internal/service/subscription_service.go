package service

import (
	"encoding/json"
	"errors"
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
	ErrQuotaExceeded    = errors.New("本周期配额已用完")
	ErrUnknownUsageType = errors.New("未知的用量类型")
	ErrPlanPreserved    = errors.New("订阅已到期，学习计划已冻结保留，续订后可继续")
)

// 功能类型
const (
	FeaturePracticeSession = "practice_session"
	FeatureAssessment      = "assessment"
	FeaturePlanProgression = "learning_plan_progression"
)

type SubscriptionService struct {
	userRepo *repository.UserRepository
	planRepo *repository.PlanRepository
	stripe   *billing.Client
	cfg      *config.Config
}

func NewSubscriptionService(
	userRepo *repository.UserRepository,
	planRepo *repository.PlanRepository,
	stripeClient *billing.Client,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo: userRepo,
		planRepo: planRepo,
		stripe:   stripeClient,
		cfg:      cfg,
	}
}

// GetUser 读取用户行
func (s *SubscriptionService) GetUser(userID int64) (*model.User, error) {
	return s.userRepo.GetByID(userID)
}

// planConfig 套餐静态配置，未知套餐按免费档处理
func (s *SubscriptionService) planConfig(planID string) config.PlanConfig {
	if plan, ok := s.cfg.Subscription.Plans[planID]; ok {
		return plan
	}
	return s.cfg.Subscription.Plans[model.PlanTryLearn]
}

// quotaFor 套餐下某用量类型的配额，-1 表示不限量
func (s *SubscriptionService) quotaFor(planID, usageType string) (int, error) {
	plan := s.planConfig(planID)
	switch usageType {
	case model.UsagePracticeSession:
		return plan.PracticeSessions, nil
	case model.UsageAssessment:
		return plan.Assessments, nil
	default:
		return 0, ErrUnknownUsageType
	}
}

// GetStatus 订阅状态视图。先与 Stripe 对账（尽力而为，失败回退本地状态），
// 订阅到期且尚未保留时触发一次性计划保留。会写用户行。
func (s *SubscriptionService) GetStatus(userID int64) (*dto.SubscriptionStatus, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	// 与 Stripe 对账：失败只记日志，不阻塞
	if s.stripe != nil && s.stripe.Enabled() && user.StripeSubscriptionID != "" {
		if err := s.reconcileWithStripe(user); err != nil {
			log.Printf("stripe reconcile failed for user %d: %v", userID, err)
		}
	}

	// 到期且未保留 -> 保留学习计划并降回免费档
	if s.isExpired(user) && !user.LearningPlanPreserved {
		if err := s.preserveLearningPlan(s.userRepo.DB(), user); err != nil {
			return nil, err
		}
	}

	limits, err := s.CalculateLimits(user)
	if err != nil {
		return nil, err
	}

	status := &dto.SubscriptionStatus{
		Plan:                  user.SubscriptionPlan,
		Period:                user.SubscriptionPeriod,
		Status:                user.SubscriptionStatus,
		Limits:                limits,
		LearningPlanPreserved: user.LearningPlanPreserved,
	}

	if user.SubscriptionPlan != model.PlanTryLearn && user.CurrentPeriodEnd != nil {
		days := DaysUntil(*user.CurrentPeriodEnd)
		status.DaysUntilExpiry = &days
		status.ExpiryWarning = ExpiryWarningMessage(days)
	}

	return status, nil
}

// reconcileWithStripe 用 Stripe 的订阅对象刷新本地状态与计费窗口
func (s *SubscriptionService) reconcileWithStripe(user *model.User) error {
	sub, err := s.stripe.GetSubscription(user.StripeSubscriptionID)
	if err != nil {
		return err
	}

	status := mapStripeStatus(sub)
	periodStart := time.Unix(sub.CurrentPeriodStart, 0).UTC()
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()

	user.SubscriptionStatus = status
	user.CurrentPeriodStart = &periodStart
	user.CurrentPeriodEnd = &periodEnd

	return s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"subscription_status":  status,
		"current_period_start": periodStart,
		"current_period_end":   periodEnd,
	})
}

func mapStripeStatus(sub *stripe.Subscription) string {
	if sub.CancelAtPeriodEnd && sub.Status == stripe.SubscriptionStatusActive {
		return model.SubStatusCanceling
	}
	switch sub.Status {
	case stripe.SubscriptionStatusActive:
		return model.SubStatusActive
	case stripe.SubscriptionStatusTrialing:
		return model.SubStatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return model.SubStatusPastDue
	case stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return model.SubStatusIncomplete
	case stripe.SubscriptionStatusCanceled:
		return model.SubStatusCanceled
	default:
		return model.SubStatusExpired
	}
}

// isExpired 付费订阅是否已过计费终点
func (s *SubscriptionService) isExpired(user *model.User) bool {
	if user.SubscriptionPlan == model.PlanTryLearn {
		return false
	}
	if user.SubscriptionStatus == model.SubStatusCanceled || user.SubscriptionStatus == model.SubStatusExpired {
		return true
	}
	return user.CurrentPeriodEnd != nil && time.Now().UTC().After(*user.CurrentPeriodEnd)
}

// progressSnapshot 保留时写入用户行的进度快照
type progressSnapshot struct {
	PlanID             string  `json:"plan_id"`
	CompletedSessions  int     `json:"completed_sessions"`
	TotalSessions      int     `json:"total_sessions"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CurrentWeek        int     `json:"current_week"`
	PreservedAt        string  `json:"preserved_at"`
}

// preserveLearningPlan 一次性保留：把最近的学习计划和进度快照存进用户行，
// 降回免费档并清零用量。没有计划的用户只做降档。db 可以是事务句柄。
func (s *SubscriptionService) preserveLearningPlan(db *gorm.DB, user *model.User) error {
	fields := map[string]interface{}{
		"learning_plan_preserved": true,
		"subscription_plan":       model.PlanTryLearn,
		"subscription_period":     model.PeriodMonthly,
		"subscription_status":     model.SubStatusExpired,
		"practice_sessions_used":  0,
		"assessments_used":        0,
	}

	plan, err := s.planRepo.GetLatestByUserIDTx(db, user.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if plan != nil {
		planData, err := json.Marshal(plan)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(progressSnapshot{
			PlanID:             plan.ID,
			CompletedSessions:  plan.CompletedSessions,
			TotalSessions:      plan.TotalSessions,
			ProgressPercentage: plan.ProgressPercentage,
			CurrentWeek:        plan.CurrentWeek(),
			PreservedAt:        time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		fields["learning_plan_data"] = model.JSON(planData)
		fields["learning_plan_progress"] = model.JSON(snapshot)
	}

	// 免费档窗口按自然月
	start, end := monthlyWindow(time.Now())
	fields["current_period_start"] = start
	fields["current_period_end"] = end

	if err := s.userRepo.UpdateFieldsTx(db, user.ID, fields); err != nil {
		return err
	}

	// 同步内存对象，调用方接着算限额
	user.LearningPlanPreserved = true
	user.SubscriptionPlan = model.PlanTryLearn
	user.SubscriptionPeriod = model.PeriodMonthly
	user.SubscriptionStatus = model.SubStatusExpired
	user.PracticeSessionsUsed = 0
	user.AssessmentsUsed = 0
	user.CurrentPeriodStart = &start
	user.CurrentPeriodEnd = &end
	return nil
}

// refreshWindow 窗口缺失或已过期时惰性建窗并清零计数
// （月度对齐自然月，年度锚定订阅开始日）。付费订阅已到期的用户
// 不在原套餐上开新窗，而是先走保留降档，之后按免费档计额。
// db 可以是事务句柄。
func (s *SubscriptionService) refreshWindow(db *gorm.DB, user *model.User) error {
	if s.isExpired(user) && !user.LearningPlanPreserved {
		return s.preserveLearningPlan(db, user)
	}

	now := time.Now().UTC()

	if user.CurrentPeriodStart != nil && user.CurrentPeriodEnd != nil &&
		now.Before(*user.CurrentPeriodEnd) {
		return nil
	}

	var anchor time.Time
	if user.CurrentPeriodStart != nil {
		anchor = *user.CurrentPeriodStart
	}
	start, end := currentWindow(user.SubscriptionPeriod, anchor, now)
	if err := s.userRepo.ResetUsageTx(db, user.ID, start, end); err != nil {
		return err
	}
	user.CurrentPeriodStart = &start
	user.CurrentPeriodEnd = &end
	user.PracticeSessionsUsed = 0
	user.AssessmentsUsed = 0
	return nil
}

// CalculateLimits 当前计费窗口内的配额视图，必要时先惰性建窗
func (s *SubscriptionService) CalculateLimits(user *model.User) (*dto.SubscriptionLimits, error) {
	if err := s.refreshWindow(s.userRepo.DB(), user); err != nil {
		return nil, err
	}

	plan := s.planConfig(user.SubscriptionPlan)

	limits := &dto.SubscriptionLimits{
		Plan:             user.SubscriptionPlan,
		Period:           user.SubscriptionPeriod,
		PracticeSessions: buildQuota(user.PracticeSessionsUsed, plan.PracticeSessions),
		Assessments:      buildQuota(user.AssessmentsUsed, plan.Assessments),
	}
	if user.CurrentPeriodStart != nil {
		limits.PeriodStart = user.CurrentPeriodStart.Format(time.RFC3339)
	}
	if user.CurrentPeriodEnd != nil {
		limits.PeriodEnd = user.CurrentPeriodEnd.Format(time.RFC3339)
	}
	return limits, nil
}

// buildQuota remaining = max(limit-used, 0)，不限量时 remaining 同为 -1
func buildQuota(used, limit int) dto.UsageQuota {
	q := dto.UsageQuota{Used: used, Limit: limit}
	if limit < 0 {
		q.Remaining = -1
		return q
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	q.Remaining = remaining
	return q
}

// TrackUsage 记一次用量。检查与递增是同一条条件 UPDATE，
// 配额耗尽时返回 false 且不写库。
func (s *SubscriptionService) TrackUsage(userID int64, usageType string) (bool, error) {
	return s.trackUsage(nil, userID, usageType)
}

// TrackUsageTx 事务版本，供会话完成在同一事务内扣量
func (s *SubscriptionService) TrackUsageTx(tx *gorm.DB, userID int64, usageType string) (bool, error) {
	return s.trackUsage(tx, userID, usageType)
}

// trackUsage 事务内调用时所有读写都走事务句柄
func (s *SubscriptionService) trackUsage(tx *gorm.DB, userID int64, usageType string) (bool, error) {
	db := s.userRepo.DB()
	if tx != nil {
		db = tx
	}

	user, err := s.userRepo.GetByIDTx(db, userID)
	if err != nil {
		return false, err
	}

	// 确保窗口有效（跨窗口的首次调用在这里清零计数）
	if err := s.refreshWindow(db, user); err != nil {
		return false, err
	}

	limit, err := s.quotaFor(user.SubscriptionPlan, usageType)
	if err != nil {
		return false, err
	}

	return s.userRepo.IncrementUsageWithinTx(db, userID, usageType, limit)
}

// CanAccessFeature 功能可用性与用户提示文案
func (s *SubscriptionService) CanAccessFeature(userID int64, feature string) (bool, string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, "", err
	}

	limits, err := s.CalculateLimits(user)
	if err != nil {
		return false, "", err
	}

	switch feature {
	case FeaturePracticeSession:
		if limits.PracticeSessions.Remaining == 0 {
			return false, "本周期练习会话配额已用完，升级套餐可继续练习", nil
		}
		return true, "", nil
	case FeatureAssessment:
		if limits.Assessments.Remaining == 0 {
			return false, "本周期评估配额已用完，下个周期自动恢复", nil
		}
		return true, "", nil
	case FeaturePlanProgression:
		if user.LearningPlanPreserved {
			return false, ErrPlanPreserved.Error(), nil
		}
		return true, "", nil
	default:
		return true, "", nil
	}
}

// ResetMonthlyUsage 清零用量并把窗口推进到当前自然月（定时任务入口）
func (s *SubscriptionService) ResetMonthlyUsage(userID int64) error {
	start, end := monthlyWindow(time.Now())
	return s.userRepo.ResetUsage(userID, start, end)
}

// ResetAllMonthly 所有月度订阅用户的窗口推进
func (s *SubscriptionService) ResetAllMonthly() error {
	start, end := monthlyWindow(time.Now())
	return s.userRepo.ResetAllMonthlyUsage(start, end)
}

// Plans 套餐列表（静态配置）
func (s *SubscriptionService) Plans() []dto.PlanInfo {
	order := []string{model.PlanTryLearn, model.PlanFluencyBuilder, model.PlanTeamMastery}
	infos := make([]dto.PlanInfo, 0, len(order))
	for _, id := range order {
		plan, ok := s.cfg.Subscription.Plans[id]
		if !ok {
			continue
		}
		infos = append(infos, dto.PlanInfo{
			ID:               id,
			DisplayName:      plan.DisplayName,
			MonthlyPrice:     plan.MonthlyPrice,
			AnnualPrice:      plan.AnnualPrice,
			PracticeSessions: plan.PracticeSessions,
			Assessments:      plan.Assessments,
			Features:         plan.Features,
		})
	}
	return infos
}

// ExpiryWarningMessage 到期提醒文案，仅 7/3/1/0 天时返回
func ExpiryWarningMessage(daysUntilExpiry int) string {
	switch daysUntilExpiry {
	case 7:
		return "您的订阅将在 7 天后到期，续订可保留全部学习进度。"
	case 3:
		return "您的订阅将在 3 天后到期，请及时续订。"
	case 1:
		return "您的订阅明天到期，到期后学习计划将被冻结保留。"
	case 0:
		return "您的订阅今天到期，续订后可立即恢复全部功能。"
	default:
		return ""
	}
}

// DaysUntil 距 t 的整天数，已过期按 0 计
func DaysUntil(t time.Time) int {
	d := time.Until(t)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
