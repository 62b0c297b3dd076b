package handler

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func setupLearningHandler(t *testing.T) (*LearningHandler, *gorm.DB, func()) {
	t.Helper()

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
	subService := service.NewSubscriptionService(userRepo, planRepo, nil, cfg)
	planService := service.NewPlanService(planRepo, userRepo)
	progressService := service.NewProgressService(db, planRepo, sessionRepo, jobRepo, subService, nil)

	handler := NewLearningHandler(planService, progressService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return handler, db, cleanup
}

func TestLearningHandler_CreatePlan(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/plans", authAs(user.ID), handler.CreatePlan)

	w := performRequest(router, "POST", "/plans", dto.CreatePlanRequest{
		Language:         "english",
		ProficiencyLevel: "B1",
		Goals:            []string{"travel"},
		DurationMonths:   3,
	})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	var plan model.LearningPlan
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, 24, plan.TotalSessions)
	assert.Len(t, plan.WeeklySchedule, 12)
}

func TestLearningHandler_CreatePlan_InvalidLevel(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/plans", authAs(user.ID), handler.CreatePlan)

	w := performRequest(router, "POST", "/plans", map[string]interface{}{
		"language":          "english",
		"proficiency_level": "D1",
		"duration_months":   3,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestLearningHandler_GetPlan_NotFound(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.GET("/plans/:id", authAs(user.ID), handler.GetPlan)

	w := performRequest(router, "GET", "/plans/missing-id", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestLearningHandler_GetPlan_NotOwner(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, owner.ID)

	router := gin.New()
	router.GET("/plans/:id", authAs(intruder.ID), handler.GetPlan)

	w := performRequest(router, "GET", "/plans/"+plan.ID, nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}

func TestLearningHandler_ListPlans(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestPlan(t, db, user.ID)
	testutil.TestPlan(t, db, user.ID, testutil.WithLanguage("french"))

	router := gin.New()
	router.GET("/plans", authAs(user.ID), handler.ListPlans)

	w := performRequest(router, "GET", "/plans", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	var items []dto.PlanListItem
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &items))
	assert.Len(t, items, 2)
}

func TestLearningHandler_CompleteSession(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	router := gin.New()
	router.POST("/plans/:id/sessions", authAs(user.ID), handler.CompleteSession)

	w := performRequest(router, "POST", "/plans/"+plan.ID+"/sessions", dto.CompleteSessionRequest{
		Topic: "点餐对话",
		Messages: []dto.SessionMessage{
			{Role: "user", Content: "I'd like a table for two."},
			{Role: "assistant", Content: "Right this way."},
		},
		DurationSeconds: 300,
	})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	var result dto.CompleteSessionResponse
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.CompletedSessions)
	assert.Equal(t, 1, result.CurrentWeek)
	assert.NotEmpty(t, result.SessionID)
}

func TestLearningHandler_CompleteSession_QuotaExceeded(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithUsage(3, 0))
	plan := testutil.TestPlan(t, db, user.ID)

	router := gin.New()
	router.POST("/plans/:id/sessions", authAs(user.ID), handler.CompleteSession)

	w := performRequest(router, "POST", "/plans/"+plan.ID+"/sessions", dto.CompleteSessionRequest{})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
}

func TestLearningHandler_CompleteSession_Preserved(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithPreserved(true))
	plan := testutil.TestPlan(t, db, user.ID)

	router := gin.New()
	router.POST("/plans/:id/sessions", authAs(user.ID), handler.CompleteSession)

	w := performRequest(router, "POST", "/plans/"+plan.ID+"/sessions", dto.CompleteSessionRequest{})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}

func TestLearningHandler_CompleteSession_PlanFinished(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithPlan(model.PlanTeamMastery, model.PeriodMonthly, model.SubStatusActive))
	plan := testutil.TestPlan(t, db, user.ID, testutil.WithCompleted(8))

	router := gin.New()
	router.POST("/plans/:id/sessions", authAs(user.ID), handler.CompleteSession)

	w := performRequest(router, "POST", "/plans/"+plan.ID+"/sessions", dto.CompleteSessionRequest{})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeDuplicateAction, resp.Code)
}

func TestLearningHandler_UpdateProgress(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	router := gin.New()
	router.PUT("/plans/:id/progress", authAs(user.ID), handler.UpdateProgress)

	w := performRequest(router, "PUT", "/plans/"+plan.ID+"/progress", dto.UpdateProgressRequest{
		CompletedSessions: 5,
	})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	var updated model.LearningPlan
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, 5, updated.CompletedSessions)
	assert.InDelta(t, 62.5, updated.ProgressPercentage, 0.01)
}

func TestLearningHandler_DeletePlan(t *testing.T) {
	handler, db, cleanup := setupLearningHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	router := gin.New()
	router.DELETE("/plans/:id", authAs(user.ID), handler.DeletePlan)

	w := performRequest(router, "DELETE", "/plans/"+plan.ID, nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	_, err := repository.NewPlanRepository(db).GetByID(plan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
