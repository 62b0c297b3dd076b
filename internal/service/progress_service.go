package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/queue"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

var (
	ErrNotPlanOwner     = errors.New("无权操作该学习计划")
	ErrPlanFinished     = errors.New("学习计划已全部完成")
	ErrProgressConflict = errors.New("进度已被其他请求更新，请重试")
)

// 摘要生成前的占位文案，worker 完成后覆盖
const summaryPlaceholder = "摘要生成中..."

// ProgressService 学习进度服务。会话完成是进度推进的唯一入口：
// 扣配额、推进计数、落会话记录在同一事务内，摘要生成异步进行。
type ProgressService struct {
	db          *gorm.DB
	planRepo    *repository.PlanRepository
	sessionRepo *repository.SessionRepository
	jobRepo     *repository.JobRepository
	subSvc      *SubscriptionService
	queue       *queue.Queue
}

func NewProgressService(
	db *gorm.DB,
	planRepo *repository.PlanRepository,
	sessionRepo *repository.SessionRepository,
	jobRepo *repository.JobRepository,
	subSvc *SubscriptionService,
	q *queue.Queue,
) *ProgressService {
	return &ProgressService{
		db:          db,
		planRepo:    planRepo,
		sessionRepo: sessionRepo,
		jobRepo:     jobRepo,
		subSvc:      subSvc,
		queue:       q,
	}
}

// CompleteSession 上报一次会话完成。配额扣减、进度推进、会话落库
// 在一个事务内，任一步失败整体回滚。摘要任务在提交后入队（尽力而为）。
func (s *ProgressService) CompleteSession(ctx context.Context, userID int64, planID string, req *dto.CompleteSessionRequest) (*dto.CompleteSessionResponse, error) {
	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrNotPlanOwner
	}

	// 到期保留的计划冻结进度
	ok, _, err := s.subSvc.CanAccessFeature(userID, FeaturePlanProgression)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlanPreserved
	}

	var (
		session   *model.ConversationSession
		weekFocus string
	)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 事务内重读，避免用事务外的旧快照推进
		plan, err = s.planRepo.GetByIDTx(tx, planID)
		if err != nil {
			return err
		}
		if plan.TotalSessions > 0 && plan.CompletedSessions >= plan.TotalSessions {
			return ErrPlanFinished
		}

		// 配额检查与扣减是同一条条件 UPDATE
		allowed, err := s.subSvc.TrackUsageTx(tx, userID, model.UsagePracticeSession)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrQuotaExceeded
		}

		expected := plan.CompletedSessions
		weekIdx := expected / model.SessionsPerWeek
		sessionInWeek := expected%model.SessionsPerWeek + 1

		if weekIdx < len(plan.WeeklySchedule) {
			week := &plan.WeeklySchedule[weekIdx]
			week.SessionsCompleted++
			week.SessionDetails = append(week.SessionDetails, model.SessionDetail{
				SessionNumber: sessionInWeek,
				Summary:       summaryPlaceholder,
				CompletedAt:   time.Now().UTC(),
			})
			weekFocus = week.Focus
		}

		plan.CompletedSessions = expected + 1
		if plan.TotalSessions > 0 {
			plan.ProgressPercentage = float64(plan.CompletedSessions) / float64(plan.TotalSessions) * 100
		}
		plan.SessionSummaries = append(plan.SessionSummaries, summaryPlaceholder)

		hit, err := s.planRepo.AdvanceProgressTx(tx, plan, expected)
		if err != nil {
			return err
		}
		if !hit {
			return ErrProgressConflict
		}

		session = &model.ConversationSession{
			ID:              uuid.New().String(),
			UserID:          userID,
			PlanID:          planID,
			Language:        plan.Language,
			Topic:           req.Topic,
			Messages:        toMessageList(req.Messages),
			DurationSeconds: req.DurationSeconds,
		}
		return s.sessionRepo.CreateTx(tx, session)
	})
	if err != nil {
		return nil, err
	}

	queued := s.enqueueSummary(ctx, session, plan, weekFocus)

	return &dto.CompleteSessionResponse{
		SessionID:          session.ID,
		CompletedSessions:  plan.CompletedSessions,
		ProgressPercentage: plan.ProgressPercentage,
		CurrentWeek:        plan.CurrentWeek(),
		SessionInWeek:      (plan.CompletedSessions-1)%model.SessionsPerWeek + 1,
		PlanStatus:         plan.Status(),
		SummaryQueued:      queued,
	}, nil
}

// enqueueSummary 摘要任务入队。失败只记日志，占位摘要留待修复工具处理。
func (s *ProgressService) enqueueSummary(ctx context.Context, session *model.ConversationSession, plan *model.LearningPlan, weekFocus string) bool {
	if s.queue == nil {
		return false
	}

	job := &model.SummaryJob{
		SessionID: session.ID,
		PlanID:    plan.ID,
		UserID:    session.UserID,
		WeekFocus: weekFocus,
		Status:    model.JobQueued,
	}
	if err := s.jobRepo.Create(job); err != nil {
		log.Printf("failed to create summary job for session %s: %v", session.ID, err)
		return false
	}

	msg := &queue.JobMessage{
		JobID:           job.ID,
		SessionID:       session.ID,
		PlanID:          plan.ID,
		UserID:          session.UserID,
		WeekFocus:       weekFocus,
		Language:        plan.Language,
		RecentUtterance: recentUserUtterances(session.Messages, 5),
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		log.Printf("failed to enqueue summary job %d: %v", job.ID, err)
		_ = s.jobRepo.UpdateStatus(job.ID, model.JobFailed)
		return false
	}
	return true
}

// recentUserUtterances 取最近 n 条学员发言，给摘要提示词用
func recentUserUtterances(messages model.MessageList, n int) []string {
	var utterances []string
	for i := len(messages) - 1; i >= 0 && len(utterances) < n; i-- {
		if messages[i].Role == "user" {
			utterances = append(utterances, messages[i].Content)
		}
	}
	// 逆序收集的，翻回时间顺序
	for i, j := 0, len(utterances)-1; i < j; i, j = i+1, j-1 {
		utterances[i], utterances[j] = utterances[j], utterances[i]
	}
	return utterances
}

func toMessageList(messages []dto.SessionMessage) model.MessageList {
	list := make(model.MessageList, 0, len(messages))
	for _, m := range messages {
		list = append(list, model.Message{Role: m.Role, Content: m.Content})
	}
	return list
}

// UpdateProgress 直接校正已完成会话数（管理修复入口），按新计数
// 重铺各周的完成分布并重算百分比。
func (s *ProgressService) UpdateProgress(userID int64, planID string, completedSessions int) (*model.LearningPlan, error) {
	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrNotPlanOwner
	}

	if completedSessions > plan.TotalSessions {
		completedSessions = plan.TotalSessions
	}

	plan.CompletedSessions = completedSessions
	if plan.TotalSessions > 0 {
		plan.ProgressPercentage = float64(completedSessions) / float64(plan.TotalSessions) * 100
	}

	remaining := completedSessions
	for i := range plan.WeeklySchedule {
		week := &plan.WeeklySchedule[i]
		if remaining >= week.TotalSessions {
			week.SessionsCompleted = week.TotalSessions
			remaining -= week.TotalSessions
		} else {
			week.SessionsCompleted = remaining
			remaining = 0
		}
		// 校正是粗粒度操作，明细以会话记录为准
		week.SessionDetails = nil
	}

	if err := s.planRepo.Update(plan); err != nil {
		return nil, err
	}
	return plan, nil
}
