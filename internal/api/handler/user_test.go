package handler

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/pkg/response"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func setupUserHandler(t *testing.T) (*UserHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	cfg := &config.Config{
		Subscription: config.SubscriptionConfig{
			Plans: config.DefaultPlans(),
		},
	}
	subService := service.NewSubscriptionService(userRepo, repository.NewPlanRepository(db), nil, cfg)
	// OSS 未配置：头像上传走服务端错误分支
	userService := service.NewUserService(userRepo, subService, nil, cfg)
	handler := NewUserHandler(userService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return handler, db, cleanup
}

func TestUserHandler_GetProfile(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithUsage(1, 0))

	router := gin.New()
	router.GET("/profile", authAs(user.ID), handler.GetProfile)

	w := performRequest(router, "GET", "/profile", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	var info dto.UserInfo
	data, _ := json.Marshal(resp.Data)
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, user.Username, info.Username)
	require.NotNil(t, info.Limits)
	assert.Equal(t, 1, info.Limits.PracticeSessions.Used)
}

func TestUserHandler_GetProfile_Unauthenticated(t *testing.T) {
	handler, _, cleanup := setupUserHandler(t)
	defer cleanup()

	router := gin.New()
	router.GET("/profile", handler.GetProfile)

	w := performRequest(router, "GET", "/profile", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.PUT("/profile", authAs(user.ID), handler.UpdateProfile)

	newName := "renamed_learner"
	nativeLang := "zh-CN"
	w := performRequest(router, "PUT", "/profile", dto.UpdateProfileRequest{
		Username:   &newName,
		NativeLang: &nativeLang,
	})
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)

	found, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed_learner", found.Username)
	assert.Equal(t, "zh-CN", found.NativeLang)
}

func TestUserHandler_UpdateProfile_UsernameTaken(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	testutil.TestUser(t, db, testutil.WithUsername("taken_name"))
	user := testutil.TestUser(t, db)

	router := gin.New()
	router.PUT("/profile", authAs(user.ID), handler.UpdateProfile)

	newName := "taken_name"
	w := performRequest(router, "PUT", "/profile", dto.UpdateProfileRequest{
		Username: &newName,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestUserHandler_UploadAvatar_NoFile(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/avatar", authAs(user.ID), handler.UploadAvatar)

	w := performRequest(router, "POST", "/avatar", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}
