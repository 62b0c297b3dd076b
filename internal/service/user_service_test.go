package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/model/dto"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB, func()) {
	db := testutil.SetupTestDB(t)

	userRepo := repository.NewUserRepository(db)
	cfg := &config.Config{
		Subscription: config.SubscriptionConfig{
			Plans: config.DefaultPlans(),
		},
	}
	subSvc := NewSubscriptionService(userRepo, repository.NewPlanRepository(db), nil, cfg)
	svc := NewUserService(userRepo, subSvc, nil, cfg)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return svc, db, cleanup
}

func TestUserService_GetProfile(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithUsage(2, 1))

	info, err := svc.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, info.Username)
	require.NotNil(t, info.Limits)
	assert.Equal(t, 2, info.Limits.PracticeSessions.Used)
	assert.Equal(t, 1, info.Limits.PracticeSessions.Remaining)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc, _, cleanup := setupUserService(t)
	defer cleanup()

	_, err := svc.GetProfile(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	newName := "polyglot_in_training"
	nativeLang := "zh-CN"
	info, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{
		Username:   &newName,
		NativeLang: &nativeLang,
	})
	require.NoError(t, err)
	assert.Equal(t, "polyglot_in_training", info.Username)
	assert.Equal(t, "zh-CN", info.NativeLanguage)

	found, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "polyglot_in_training", found.Username)
}

func TestUserService_UpdateProfile_UsernameTaken(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	testutil.TestUser(t, db, testutil.WithUsername("first_claimant"))
	user := testutil.TestUser(t, db)

	taken := "first_claimant"
	_, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestUserService_UpdateProfile_SameUsernameNoop(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	// 改成自己当前的用户名不算冲突
	same := user.Username
	info, err := svc.UpdateProfile(user.ID, &dto.UpdateProfileRequest{Username: &same})
	require.NoError(t, err)
	assert.Equal(t, user.Username, info.Username)
}

func TestUserService_UpdateAvatar(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	require.NoError(t, svc.UpdateAvatar(user.ID, "https://cdn.example.com/avatars/1.png"))

	found, err := repository.NewUserRepository(db).GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/1.png", found.AvatarURL)
}

func TestUserService_UploadAvatar_OSSNotConfigured(t *testing.T) {
	svc, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.UploadAvatar(user.ID, strings.NewReader("fake-image-bytes"), "avatar.png")
	assert.Error(t, err)
}
