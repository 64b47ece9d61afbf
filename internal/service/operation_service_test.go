package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func setupOperationService(t *testing.T) (*OperationService, *gorm.DB, *queue.Queue, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.NewQueue(client, "test:operations")

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{ManualDailyQuota: 3},
	}

	opRepo := repository.NewOperationRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	quotaSvc := NewQuotaService(userRepo, cfg)

	svc := NewOperationService(opRepo, draftRepo, prefRepo, q, quotaSvc)

	cleanup := func() {
		client.Close()
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, q, cleanup
}

func TestOperationService_Enqueue_CreatesAndPushes(t *testing.T) {
	svc, db, q, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	resp, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerScheduled)
	require.NoError(t, err)
	assert.NotZero(t, resp.OperationID)
	assert.Equal(t, model.OperationStatusQueued, resp.Status)
	assert.False(t, resp.Deduplicated)

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	var op model.Operation
	require.NoError(t, db.First(&op, resp.OperationID).Error)
	assert.Equal(t, 25, op.WeekNumber)
	assert.Equal(t, 2026, op.Year)
	assert.NotEmpty(t, op.TraceID)
	assert.Equal(t, "scheduled", op.InputData["trigger"])
}

func TestOperationService_Enqueue_SnapshotsIntegrations(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	pref := testutil.TestPreference(t, db, user.ID, testutil.WithSources("calendar"))

	resp, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerManual)
	require.NoError(t, err)

	var op model.Operation
	require.NoError(t, db.First(&op, resp.OperationID).Error)
	assert.Equal(t, []interface{}{"calendar"}, op.InputData["include_integrations"])

	// 入队之后改偏好，已排队任务里的快照不变
	pref.IncludeSources = model.StringArray{"calendar", "github"}
	require.NoError(t, db.Save(pref).Error)

	require.NoError(t, db.First(&op, resp.OperationID).Error)
	assert.Equal(t, []interface{}{"calendar"}, op.InputData["include_integrations"])
}

func TestOperationService_Enqueue_DedupActiveOperation(t *testing.T) {
	svc, db, q, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	first, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerScheduled)
	require.NoError(t, err)

	second, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.OperationID, second.OperationID)

	// 队列里只有一条
	length, _ := q.Length(context.Background())
	assert.Equal(t, int64(1), length)
}

func TestOperationService_Enqueue_FailedOperationAllowsRetry(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestOperation(t, db, user.ID,
		testutil.WithWeek(2026, 25), testutil.WithStatus(model.OperationStatusFailed))

	resp, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerManual)
	require.NoError(t, err)
	assert.False(t, resp.Deduplicated)
	assert.NotZero(t, resp.OperationID)
}

func TestOperationService_Enqueue_DedupExistingDraft(t *testing.T) {
	svc, db, q, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	resp, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 2026, 25, TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, resp.Deduplicated)
	assert.Equal(t, model.OperationStatusCompleted, resp.Status)

	length, _ := q.Length(context.Background())
	assert.Equal(t, int64(0), length)
}

func TestOperationService_EnqueueManual_QuotaExceeded(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithManualQuotaUsed(3))

	_, err := svc.EnqueueManual(context.Background(), user.ID, &dto.EnqueueOperationRequest{
		JobType: model.JobTypeWeeklyReflection, Year: 2026, WeekNumber: 25,
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestOperationService_EnqueueManual_ConsumesQuota(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.EnqueueManual(context.Background(), user.ID, &dto.EnqueueOperationRequest{
		JobType: model.JobTypeWeeklyReflection, Year: 2026, WeekNumber: 25,
	})
	require.NoError(t, err)

	var found model.User
	require.NoError(t, db.First(&found, user.ID).Error)
	assert.Equal(t, 1, found.ManualQuotaToday)
}

func TestOperationService_EnqueueManual_DedupDoesNotConsumeQuota(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	req := &dto.EnqueueOperationRequest{
		JobType: model.JobTypeWeeklyReflection, Year: 2026, WeekNumber: 25,
	}
	_, err := svc.EnqueueManual(context.Background(), user.ID, req)
	require.NoError(t, err)
	_, err = svc.EnqueueManual(context.Background(), user.ID, req)
	require.NoError(t, err)

	var found model.User
	require.NoError(t, db.First(&found, user.ID).Error)
	assert.Equal(t, 1, found.ManualQuotaToday)
}

func TestOperationService_GetStatus(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	status, err := svc.GetStatus(user.ID, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.ID, status.OperationID)
	assert.Equal(t, model.OperationStatusQueued, status.Status)
}

func TestOperationService_GetStatus_OtherUserDenied(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, owner.ID)

	_, err := svc.GetStatus(intruder.ID, op.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestOperationService_GetStatus_NotFound(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.GetStatus(user.ID, 99999)
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestOperationService_Enqueue_DefaultWeek(t *testing.T) {
	svc, db, _, cleanup := setupOperationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	resp, err := svc.Enqueue(context.Background(), user.ID, model.JobTypeWeeklyReflection, 0, 0, TriggerManual)
	require.NoError(t, err)

	var op model.Operation
	require.NoError(t, db.First(&op, resp.OperationID).Error)
	assert.NotZero(t, op.WeekNumber)
	assert.NotZero(t, op.Year)
}
