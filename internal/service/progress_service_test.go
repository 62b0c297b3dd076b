package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

// 测试不连 Redis，queue 传 nil，摘要入队返回 false
func setupProgressService(t *testing.T) (*ProgressService, *gorm.DB, func()) {
	db := testutil.SetupTestDB(t)

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	jobRepo := repository.NewJobRepository(db)
	cfg := &config.Config{
		Subscription: config.SubscriptionConfig{
			Plans: config.DefaultPlans(),
		},
	}

	subSvc := NewSubscriptionService(userRepo, planRepo, nil, cfg)
	svc := NewProgressService(db, planRepo, sessionRepo, jobRepo, subSvc, nil)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return svc, db, cleanup
}

func completeReq(topic string) *dto.CompleteSessionRequest {
	return &dto.CompleteSessionRequest{
		Topic: topic,
		Messages: []dto.SessionMessage{
			{Role: "user", Content: "I'd like to order a coffee, please."},
			{Role: "assistant", Content: "Sure! What size would you like?"},
			{Role: "user", Content: "A large one, with milk."},
		},
		DurationSeconds: 420,
	}
}

func TestProgressService_CompleteSession(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	resp, err := svc.CompleteSession(context.Background(), user.ID, plan.ID, completeReq("点餐"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.CompletedSessions)
	assert.InDelta(t, 12.5, resp.ProgressPercentage, 0.01)
	assert.Equal(t, 1, resp.CurrentWeek)
	assert.Equal(t, 1, resp.SessionInWeek)
	assert.Equal(t, model.PlanInProgress, resp.PlanStatus)
	assert.False(t, resp.SummaryQueued)

	// 计划字段落库
	var saved model.LearningPlan
	require.NoError(t, db.Where("id = ?", plan.ID).First(&saved).Error)
	assert.Equal(t, 1, saved.CompletedSessions)
	assert.Equal(t, 1, saved.WeeklySchedule[0].SessionsCompleted)
	require.Len(t, saved.WeeklySchedule[0].SessionDetails, 1)
	assert.Equal(t, 1, saved.WeeklySchedule[0].SessionDetails[0].SessionNumber)
	assert.Equal(t, summaryPlaceholder, saved.WeeklySchedule[0].SessionDetails[0].Summary)
	require.Len(t, saved.SessionSummaries, 1)
	assert.Equal(t, summaryPlaceholder, saved.SessionSummaries[0])

	// 会话记录落库
	var session model.ConversationSession
	require.NoError(t, db.Where("id = ?", resp.SessionID).First(&session).Error)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, plan.ID, session.PlanID)
	assert.Equal(t, "点餐", session.Topic)
	assert.Equal(t, 420, session.DurationSeconds)
	assert.Len(t, session.Messages, 3)

	// 配额同事务扣减
	var savedUser model.User
	require.NoError(t, db.First(&savedUser, user.ID).Error)
	assert.Equal(t, 1, savedUser.PracticeSessionsUsed)
}

func TestProgressService_CompleteSession_WeekIndexing(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	// 不限量档避免配额干扰周序号验证
	user := testutil.TestUser(t, db,
		testutil.WithPlan(model.PlanTeamMastery, model.PeriodMonthly, model.SubStatusActive),
	)
	plan := testutil.TestPlan(t, db, user.ID)

	// 每周固定 2 次：第 k 次完成后在第 k/2+1 周，周内序号 (k-1)%2+1
	expectations := []struct {
		currentWeek   int
		sessionInWeek int
	}{
		{1, 1}, {2, 2}, {2, 1}, {3, 2},
	}

	for i, want := range expectations {
		resp, err := svc.CompleteSession(context.Background(), user.ID, plan.ID, completeReq("测试"))
		require.NoError(t, err)
		assert.Equal(t, i+1, resp.CompletedSessions)
		assert.Equal(t, want.currentWeek, resp.CurrentWeek, "第 %d 次完成", i+1)
		assert.Equal(t, want.sessionInWeek, resp.SessionInWeek, "第 %d 次完成", i+1)
	}

	var saved model.LearningPlan
	require.NoError(t, db.Where("id = ?", plan.ID).First(&saved).Error)
	assert.InDelta(t, 50.0, saved.ProgressPercentage, 0.01)
	assert.Equal(t, 2, saved.WeeklySchedule[0].SessionsCompleted)
	assert.Equal(t, 2, saved.WeeklySchedule[1].SessionsCompleted)
	assert.Equal(t, 0, saved.WeeklySchedule[2].SessionsCompleted)
}

func TestProgressService_CompleteSession_QuotaExhaustedRollsBack(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	// 免费档已用满 3 次
	user := testutil.TestUser(t, db, testutil.WithUsage(3, 0))
	plan := testutil.TestPlan(t, db, user.ID, testutil.WithCompleted(3))

	_, err := svc.CompleteSession(context.Background(), user.ID, plan.ID, completeReq("超额"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// 整体回滚：进度不动，没有会话记录
	var saved model.LearningPlan
	require.NoError(t, db.Where("id = ?", plan.ID).First(&saved).Error)
	assert.Equal(t, 3, saved.CompletedSessions)

	var count int64
	require.NoError(t, db.Model(&model.ConversationSession{}).
		Where("plan_id = ?", plan.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var savedUser model.User
	require.NoError(t, db.First(&savedUser, user.ID).Error)
	assert.Equal(t, 3, savedUser.PracticeSessionsUsed)
}

func TestProgressService_CompleteSession_NotOwner(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, owner.ID)

	_, err := svc.CompleteSession(context.Background(), other.ID, plan.ID, completeReq("越权"))
	assert.ErrorIs(t, err, ErrNotPlanOwner)
}

func TestProgressService_CompleteSession_PlanFinished(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithPlan(model.PlanTeamMastery, model.PeriodMonthly, model.SubStatusActive),
	)
	plan := testutil.TestPlan(t, db, user.ID, testutil.WithCompleted(8))

	_, err := svc.CompleteSession(context.Background(), user.ID, plan.ID, completeReq("完结后"))
	assert.ErrorIs(t, err, ErrPlanFinished)
}

func TestProgressService_CompleteSession_PreservedBlocked(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithPreserved(true))
	plan := testutil.TestPlan(t, db, user.ID, testutil.WithCompleted(2))

	_, err := svc.CompleteSession(context.Background(), user.ID, plan.ID, completeReq("冻结中"))
	assert.ErrorIs(t, err, ErrPlanPreserved)

	var saved model.LearningPlan
	require.NoError(t, db.Where("id = ?", plan.ID).First(&saved).Error)
	assert.Equal(t, 2, saved.CompletedSessions)
}

func TestProgressService_CompleteSession_PlanNotFound(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.CompleteSession(context.Background(), user.ID, "no-such-plan", completeReq("x"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProgressService_UpdateProgress(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	updated, err := svc.UpdateProgress(user.ID, plan.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, updated.CompletedSessions)
	assert.InDelta(t, 62.5, updated.ProgressPercentage, 0.01)
	// 5 次按每周 2 次重铺：2, 2, 1, 0
	assert.Equal(t, 2, updated.WeeklySchedule[0].SessionsCompleted)
	assert.Equal(t, 2, updated.WeeklySchedule[1].SessionsCompleted)
	assert.Equal(t, 1, updated.WeeklySchedule[2].SessionsCompleted)
	assert.Equal(t, 0, updated.WeeklySchedule[3].SessionsCompleted)
}

func TestProgressService_UpdateProgress_ClampedToTotal(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	updated, err := svc.UpdateProgress(user.ID, plan.ID, 100)
	require.NoError(t, err)

	assert.Equal(t, 8, updated.CompletedSessions)
	assert.InDelta(t, 100.0, updated.ProgressPercentage, 0.01)
	assert.Equal(t, model.PlanCompleted, updated.Status())
}

func TestProgressService_UpdateProgress_NotOwner(t *testing.T) {
	svc, db, cleanup := setupProgressService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, owner.ID)

	_, err := svc.UpdateProgress(other.ID, plan.ID, 2)
	assert.ErrorIs(t, err, ErrNotPlanOwner)
}

func TestRecentUserUtterances(t *testing.T) {
	messages := model.MessageList{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "four"},
	}

	// 只取学员发言，保持时间顺序，最多 n 条
	got := recentUserUtterances(messages, 3)
	assert.Equal(t, []string{"two", "three", "four"}, got)

	got = recentUserUtterances(messages, 10)
	assert.Equal(t, []string{"one", "two", "three", "four"}, got)

	assert.Empty(t, recentUserUtterances(model.MessageList{}, 5))
}
