package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/response"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/service"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func setupUserHandler(t *testing.T) (*UserHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{ManualDailyQuota: 3},
	}
	handler := NewUserHandler(
		service.NewUserService(repository.NewUserRepository(db), cfg),
	)
	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return handler, db, cleanup
}

func TestUserHandler_GetProfile(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	router := authedRouter(user.ID)
	router.GET("/profile", handler.GetProfile)

	w := performRequest(router, "GET", "/profile", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, user.Username, data["username"])
	assert.Equal(t, false, data["github_linked"])
	assert.Equal(t, float64(3), data["manual_daily_quota"])
}

func TestUserHandler_GetProfile_NotFound(t *testing.T) {
	handler, _, cleanup := setupUserHandler(t)
	defer cleanup()

	router := authedRouter(99999)
	router.GET("/profile", handler.GetProfile)

	w := performRequest(router, "GET", "/profile", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	router := authedRouter(user.ID)
	router.PUT("/profile", handler.UpdateProfile)

	name := "renamed_user"
	w := performRequest(router, "PUT", "/profile", dto.UpdateProfileRequest{
		Username: &name,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "renamed_user", data["username"])
}

func TestUserHandler_UpdateProfile_DuplicateUsername(t *testing.T) {
	handler, db, cleanup := setupUserHandler(t)
	defer cleanup()

	existing := testutil.TestUser(t, db)
	user := testutil.TestUser(t, db)

	router := authedRouter(user.ID)
	router.PUT("/profile", handler.UpdateProfile)

	w := performRequest(router, "PUT", "/profile", dto.UpdateProfileRequest{
		Username: &existing.Username,
	})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}
