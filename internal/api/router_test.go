package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/api/handler"
	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/jwt"
	"github.com/qs3c/lingo_go_server/internal/pkg/kb"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/pkg/ws"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

const testJWTSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// setupRouter 按 cmd/server 的装配方式搭完整路由，
// Stripe/OSS/Redis 等外部依赖留空
func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testJWTSecret, ExpireHours: 24},
		Subscription: config.SubscriptionConfig{
			Plans: config.DefaultPlans(),
		},
	}

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	jobRepo := repository.NewJobRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	authService := service.NewAuthService(userRepo, cfg, nil)
	subscriptionService := service.NewSubscriptionService(userRepo, planRepo, nil, cfg)
	userService := service.NewUserService(userRepo, subscriptionService, nil, cfg)
	billingService := service.NewBillingService(userRepo, paymentRepo, nil, cfg)
	planService := service.NewPlanService(planRepo, userRepo)
	progressService := service.NewProgressService(db, planRepo, sessionRepo, jobRepo, subscriptionService, nil)
	chatService := service.NewChatService(kb.New(&cfg.Knowledge), nil)
	exportService := service.NewExportService(sessionRepo, nil)

	router := NewRouter(
		handler.NewAuthHandler(authService, nil, ""),
		handler.NewUserHandler(userService),
		handler.NewSubscriptionHandler(subscriptionService),
		handler.NewBillingHandler(billingService),
		handler.NewLearningHandler(planService, progressService),
		handler.NewSessionHandler(sessionRepo),
		handler.NewChatHandler(chatService),
		handler.NewExportHandler(exportService),
		handler.NewWebSocketHandler(ws.NewHub(), cfg.JWT.Secret),
		subscriptionService,
		cfg,
	)

	return router.Setup(), db
}

func bearerToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, testJWTSecret, 1)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(engine *gin.Engine, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouter_CompleteSession_RequiresAuth(t *testing.T) {
	engine, _ := setupRouter(t)

	w := doJSON(engine, "POST", "/api/v1/plans/any/sessions", "", dto.CompleteSessionRequest{})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeAuthFailed, decodeResponse(t, w).Code)
}

func TestRouter_CompleteSession_QuotaGate(t *testing.T) {
	engine, db := setupRouter(t)

	// 免费档配额已用完
	user := testutil.TestUser(t, db, testutil.WithUsage(3, 0))
	plan := testutil.TestPlan(t, db, user.ID)

	w := doJSON(engine, "POST", "/api/v1/plans/"+plan.ID+"/sessions",
		bearerToken(t, user.ID), dto.CompleteSessionRequest{Topic: "问路"})

	resp := decodeResponse(t, w)
	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
	assert.Contains(t, resp.Message, "配额已用完")

	// 被拦在中间件，计划进度不动
	var saved model.LearningPlan
	require.NoError(t, db.First(&saved, "id = ?", plan.ID).Error)
	assert.Equal(t, 0, saved.CompletedSessions)
}

func TestRouter_CompleteSession_WithinQuota(t *testing.T) {
	engine, db := setupRouter(t)

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)

	w := doJSON(engine, "POST", "/api/v1/plans/"+plan.ID+"/sessions",
		bearerToken(t, user.ID), dto.CompleteSessionRequest{Topic: "点餐"})

	resp := decodeResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var saved model.LearningPlan
	require.NoError(t, db.First(&saved, "id = ?", plan.ID).Error)
	assert.Equal(t, 1, saved.CompletedSessions)
}

func TestRouter_ListPlans_Anonymous(t *testing.T) {
	engine, _ := setupRouter(t)

	w := doJSON(engine, "GET", "/api/v1/subscription/plans", "", nil)
	resp := decodeResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, _ := json.Marshal(resp.Data)
	var plans []dto.PlanInfo
	require.NoError(t, json.Unmarshal(data, &plans))

	require.Len(t, plans, 3)
	for _, p := range plans {
		assert.False(t, p.Current)
	}
}

func TestRouter_ListPlans_MarksCurrentPlan(t *testing.T) {
	engine, db := setupRouter(t)

	user := testutil.TestUser(t, db,
		testutil.WithPlan(model.PlanFluencyBuilder, model.PeriodMonthly, model.SubStatusActive),
	)

	w := doJSON(engine, "GET", "/api/v1/subscription/plans", bearerToken(t, user.ID), nil)
	resp := decodeResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, _ := json.Marshal(resp.Data)
	var plans []dto.PlanInfo
	require.NoError(t, json.Unmarshal(data, &plans))

	require.Len(t, plans, 3)
	for _, p := range plans {
		assert.Equal(t, p.ID == model.PlanFluencyBuilder, p.Current, "plan %s", p.ID)
	}
}
