package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

// 2026-06-19 是周五
var fridayNoonUTC = time.Date(2026, 6, 19, 12, 0, 0, 0, time.UTC)

func TestShouldEnqueue_HitInUserTimezone(t *testing.T) {
	// 夏令时期间纽约为 UTC-4：周五 18:00 UTC = 周五 14:00 当地
	pref := &model.UserPreference{
		AutoGenerate:  true,
		PreferredDay:  5,
		PreferredHour: 14,
		Timezone:      "America/New_York",
	}

	utcNow := time.Date(2026, 6, 19, 18, 0, 0, 0, time.UTC)
	hit, year, week := ShouldEnqueue(utcNow, pref)
	require.True(t, hit)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 25, week)
}

func TestShouldEnqueue_MissWrongHour(t *testing.T) {
	pref := &model.UserPreference{
		AutoGenerate:  true,
		PreferredDay:  5,
		PreferredHour: 14,
		Timezone:      "America/New_York",
	}

	// 周五 17:00 UTC = 当地 13:00，未到偏好时间
	utcNow := time.Date(2026, 6, 19, 17, 0, 0, 0, time.UTC)
	hit, _, _ := ShouldEnqueue(utcNow, pref)
	assert.False(t, hit)
}

func TestShouldEnqueue_MissWrongDay(t *testing.T) {
	pref := &model.UserPreference{
		AutoGenerate:  true,
		PreferredDay:  4, // 周四
		PreferredHour: 12,
		Timezone:      "UTC",
	}

	hit, _, _ := ShouldEnqueue(fridayNoonUTC, pref)
	assert.False(t, hit)
}

func TestShouldEnqueue_AutoGenerateDisabled(t *testing.T) {
	pref := &model.UserPreference{
		AutoGenerate:  false,
		PreferredDay:  5,
		PreferredHour: 12,
		Timezone:      "UTC",
	}

	hit, _, _ := ShouldEnqueue(fridayNoonUTC, pref)
	assert.False(t, hit)
}

func TestShouldEnqueue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	pref := &model.UserPreference{
		AutoGenerate:  true,
		PreferredDay:  5,
		PreferredHour: 12,
		Timezone:      "Not/AZone",
	}

	hit, year, week := ShouldEnqueue(fridayNoonUTC, pref)
	assert.True(t, hit)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 25, week)
}

func TestShouldEnqueue_DateLineBoundary(t *testing.T) {
	// 东京已是周六 02:00，UTC 还是周五 17:00
	pref := &model.UserPreference{
		AutoGenerate:  true,
		PreferredDay:  6, // 周六
		PreferredHour: 2,
		Timezone:      "Asia/Tokyo",
	}

	utcNow := time.Date(2026, 6, 19, 17, 0, 0, 0, time.UTC)
	hit, year, week := ShouldEnqueue(utcNow, pref)
	require.True(t, hit)
	// 目标周按用户时区计算
	assert.Equal(t, 2026, year)
	assert.Equal(t, 25, week)
}

func setupSchedulerService(t *testing.T) (*SchedulerService, *gorm.DB, *queue.Queue, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.NewQueue(client, "test:operations")

	cfg := &config.Config{Scheduler: config.SchedulerConfig{ManualDailyQuota: 3}}

	opRepo := repository.NewOperationRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	quotaSvc := NewQuotaService(userRepo, cfg)
	opSvc := NewOperationService(opRepo, draftRepo, prefRepo, q, quotaSvc)

	svc := NewSchedulerService(prefRepo, opSvc)

	cleanup := func() {
		client.Close()
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, q, cleanup
}

func TestSchedulerService_CheckAllUsers_PerUserIsolation(t *testing.T) {
	svc, db, q, cleanup := setupSchedulerService(t)
	defer cleanup()

	now := time.Now().UTC()

	// 命中当前时刻的用户
	hitUser := testutil.TestUser(t, db)
	testutil.TestPreference(t, db, hitUser.ID,
		testutil.WithSchedule(int(now.Weekday()), now.Hour(), "UTC"))

	// 未命中的用户
	missUser := testutil.TestUser(t, db)
	testutil.TestPreference(t, db, missUser.ID,
		testutil.WithSchedule(int(now.Weekday()), (now.Hour()+3)%24, "UTC"))

	// 关闭自动生成的用户
	offUser := testutil.TestUser(t, db)
	testutil.TestPreference(t, db, offUser.ID, testutil.WithAutoGenerate(false))

	require.NoError(t, svc.CheckAllUsers(context.Background()))

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	var count int64
	db.Model(&model.Operation{}).Where("user_id = ?", hitUser.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSchedulerService_CheckAllUsers_DoubleTickNoDuplicate(t *testing.T) {
	svc, db, q, cleanup := setupSchedulerService(t)
	defer cleanup()

	now := time.Now().UTC()
	user := testutil.TestUser(t, db)
	testutil.TestPreference(t, db, user.ID,
		testutil.WithSchedule(int(now.Weekday()), now.Hour(), "UTC"))

	require.NoError(t, svc.CheckAllUsers(context.Background()))
	require.NoError(t, svc.CheckAllUsers(context.Background()))

	var count int64
	db.Model(&model.Operation{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	length, _ := q.Length(context.Background())
	assert.Equal(t, int64(1), length)
}
