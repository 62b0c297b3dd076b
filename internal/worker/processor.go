package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/pkg/ai"
	"github.com/qs3c/lingo_go_server/internal/pkg/pubsub"
	"github.com/qs3c/lingo_go_server/internal/pkg/queue"
	"github.com/qs3c/lingo_go_server/internal/repository"
)

// Processor 摘要任务处理器
type Processor struct {
	jobRepo     *repository.JobRepository
	sessionRepo *repository.SessionRepository
	planRepo    *repository.PlanRepository
	aiClient    *ai.Client
	publisher   *pubsub.Publisher
	cfg         *config.Config
}

// NewProcessor 创建任务处理器
func NewProcessor(
	jobRepo *repository.JobRepository,
	sessionRepo *repository.SessionRepository,
	planRepo *repository.PlanRepository,
	aiClient *ai.Client,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Processor {
	return &Processor{
		jobRepo:     jobRepo,
		sessionRepo: sessionRepo,
		planRepo:    planRepo,
		aiClient:    aiClient,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Process 处理摘要生成任务
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	// 更新状态为处理中
	now := time.Now()
	job.Status = model.JobProcessing
	job.StartedAt = &now
	p.jobRepo.Update(job)

	// 定义进度推送辅助函数
	publishProgress := func(step, status string, errMsg string) {
		p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:    msg.UserID,
			SessionID: msg.SessionID,
			PlanID:    msg.PlanID,
			JobID:     msg.JobID,
			Status:    status,
			Step:      step,
			Error:     errMsg,
		})
	}

	// 定义失败处理函数
	handleError := func(step string, err error) error {
		errMsg := err.Error()
		job.Status = model.JobFailed
		job.ErrorMessage = errMsg
		completedAt := time.Now()
		job.CompletedAt = &completedAt
		job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
		p.jobRepo.Update(job)
		publishProgress(step, "failed", errMsg)
		return err
	}

	// Step 1: 加载会话记录
	log.Printf("Job %d: loading session %s", job.ID, msg.SessionID)
	publishProgress(pubsub.StepLoading, "processing", "")

	session, err := p.sessionRepo.GetByID(msg.SessionID)
	if err != nil {
		return handleError(pubsub.StepLoading, fmt.Errorf("failed to load session: %w", err))
	}

	// Step 2: 生成摘要，AI 失败时用模板兜底
	log.Printf("Job %d: generating summary", job.ID)
	publishProgress(pubsub.StepGenerating, "processing", "")

	summary, err := p.generateSummary(ctx, msg, session)
	if err != nil {
		log.Printf("Job %d: ai summary failed, using fallback: %v", job.ID, err)
		summary = fallbackSummary(msg, session)
	}

	// Step 3: 保存摘要
	log.Printf("Job %d: saving summary", job.ID)
	publishProgress(pubsub.StepSaving, "processing", "")

	if err := p.sessionRepo.UpdateSummary(session.ID, summary); err != nil {
		return handleError(pubsub.StepSaving, fmt.Errorf("failed to save session summary: %w", err))
	}
	if msg.PlanID != "" {
		if err := p.saveSummaryToPlan(msg.PlanID, session.ID, summary); err != nil {
			return handleError(pubsub.StepSaving, fmt.Errorf("failed to save plan summary: %w", err))
		}
	}

	// 更新 Job
	job.Status = model.JobCompleted
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
	p.jobRepo.Update(job)

	// 推送完成消息
	p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		UserID:    msg.UserID,
		SessionID: msg.SessionID,
		PlanID:    msg.PlanID,
		JobID:     msg.JobID,
		Status:    "completed",
		Step:      pubsub.StepDone,
		Summary:   summary,
	})

	log.Printf("Job %d: completed in %d seconds", job.ID, job.ElapsedSeconds)
	return nil
}

// generateSummary 用当前周主题和会话转写生成摘要
func (p *Processor) generateSummary(ctx context.Context, msg *queue.JobMessage, session *model.ConversationSession) (string, error) {
	if p.aiClient == nil {
		return "", ai.ErrEmptyCompletion
	}

	var transcript strings.Builder
	for _, m := range session.Messages {
		role := "学员"
		if m.Role == "assistant" {
			role = "助教"
		}
		fmt.Fprintf(&transcript, "%s：%s\n", role, m.Content)
	}

	system := fmt.Sprintf(
		"你是语言学习平台的助教。请用 2-3 句中文总结这次 %s 练习会话：学员练了什么、表现如何、下次可以改进什么。",
		session.Language)
	if msg.WeekFocus != "" {
		system += fmt.Sprintf("本周训练主题：%s。", msg.WeekFocus)
	}

	return p.aiClient.Complete(ctx, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: transcript.String()},
	})
}

// fallbackSummary AI 不可用时的确定性模板摘要
func fallbackSummary(msg *queue.JobMessage, session *model.ConversationSession) string {
	topic := session.Topic
	if topic == "" {
		topic = "自由对话"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "本次完成了「%s」练习", topic)
	if msg.WeekFocus != "" {
		fmt.Fprintf(&b, "（%s）", msg.WeekFocus)
	}
	fmt.Fprintf(&b, "，共 %d 条对话", len(session.Messages))
	if session.DurationSeconds > 0 {
		fmt.Fprintf(&b, "，时长 %d 分钟", (session.DurationSeconds+59)/60)
	}
	b.WriteString("。")
	return b.String()
}

// saveSummaryToPlan 把摘要回填到计划的对应位置：
// 会话在计划中的序号由会话记录的时间顺序确定，序号推导出周与周内位置。
func (p *Processor) saveSummaryToPlan(planID, sessionID, summary string) error {
	plan, err := p.planRepo.GetByID(planID)
	if err != nil {
		return err
	}

	sessions, err := p.sessionRepo.ListByPlanID(planID)
	if err != nil {
		return err
	}

	idx := -1
	for i, s := range sessions {
		if s.ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("session %s not found in plan %s", sessionID, planID)
	}

	if idx < len(plan.SessionSummaries) {
		plan.SessionSummaries[idx] = summary
	}

	weekIdx := idx / model.SessionsPerWeek
	sessionInWeek := idx%model.SessionsPerWeek + 1
	if weekIdx < len(plan.WeeklySchedule) {
		details := plan.WeeklySchedule[weekIdx].SessionDetails
		for i := range details {
			if details[i].SessionNumber == sessionInWeek {
				details[i].Summary = summary
				break
			}
		}
	}

	return p.planRepo.Update(plan)
}
