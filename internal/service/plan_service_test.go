package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func setupPlanService(t *testing.T) (*PlanService, *gorm.DB, func()) {
	db := testutil.SetupTestDB(t)

	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)
	svc := NewPlanService(planRepo, userRepo)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return svc, db, cleanup
}

func TestPlanService_CreatePlan(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	plan, err := svc.CreatePlan(user.ID, &dto.CreatePlanRequest{
		Language:         "english",
		ProficiencyLevel: "B1",
		Goals:            []string{"travel", "business"},
		DurationMonths:   3,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, user.ID, plan.UserID)
	// 3 个月 = 12 周，每周固定 2 次会话
	assert.Equal(t, 24, plan.TotalSessions)
	require.Len(t, plan.WeeklySchedule, 12)
	assert.Equal(t, 0, plan.CompletedSessions)
	assert.Equal(t, model.PlanNotStarted, plan.Status())

	for i, week := range plan.WeeklySchedule {
		assert.Equal(t, model.SessionsPerWeek, week.TotalSessions)
		assert.NotEmpty(t, week.Focus, "第 %d 周", i+1)
		assert.NotEmpty(t, week.Activities)
	}

	// 周主题按级别轮转，不同周不同主题
	assert.NotEqual(t, plan.WeeklySchedule[0].Focus, plan.WeeklySchedule[1].Focus)
}

func TestPlanService_CreatePlan_UnknownLevelFallsBack(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	plan, err := svc.CreatePlan(user.ID, &dto.CreatePlanRequest{
		Language:         "japanese",
		ProficiencyLevel: "X9",
		DurationMonths:   1,
	})
	require.NoError(t, err)
	require.Len(t, plan.WeeklySchedule, 4)
	assert.NotEmpty(t, plan.WeeklySchedule[0].Focus)
}

func TestPlanService_GetPlan(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	created := testutil.TestPlan(t, db, user.ID)

	plan, err := svc.GetPlan(user.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, plan.ID)
	assert.Equal(t, "english", plan.Language)
}

func TestPlanService_GetPlan_NotOwner(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, owner.ID)

	_, err := svc.GetPlan(other.ID, plan.ID)
	assert.ErrorIs(t, err, ErrNotPlanOwner)
}

func TestPlanService_GetPlan_NotFound(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.GetPlan(user.ID, "no-such-plan")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPlanService_ListPlans(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestPlan(t, db, user.ID, testutil.WithCompleted(3))
	testutil.TestPlan(t, db, user.ID, testutil.WithLanguage("french"))

	// 其他用户的计划不可见
	other := testutil.TestUser(t, db)
	testutil.TestPlan(t, db, other.ID)

	items, err := svc.ListPlans(user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.NotEmpty(t, item.Status)
		assert.NotEmpty(t, item.CreatedAt)
	}
}

func TestPlanService_DeletePlan(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	require.NoError(t, svc.DeletePlan(user.ID, plan.ID))

	var count int64
	require.NoError(t, db.Model(&model.LearningPlan{}).Where("id = ?", plan.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPlanService_DeletePlan_NotOwner(t *testing.T) {
	svc, db, cleanup := setupPlanService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, owner.ID)

	err := svc.DeletePlan(other.ID, plan.ID)
	assert.ErrorIs(t, err, ErrNotPlanOwner)

	var count int64
	require.NoError(t, db.Model(&model.LearningPlan{}).Where("id = ?", plan.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
