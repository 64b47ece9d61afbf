package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func setupProcessor(t *testing.T, handlers ...Handler) (*Processor, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	registry := NewRegistry()
	for _, h := range handlers {
		require.NoError(t, registry.Register(h))
	}

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{JobTimeoutMinutes: 10, ManualDailyQuota: 3},
	}

	processor := NewProcessor(
		repository.NewOperationRepository(db),
		repository.NewUserRepository(db),
		repository.NewPreferenceRepository(db),
		registry,
		nil, // 进度推送在本用例中不关心
		nil,
		cfg,
	)

	return processor, db, func() { testutil.CleanupTestDB(t, db) }
}

func messageFor(op *model.Operation) *queue.OperationMessage {
	return &queue.OperationMessage{
		OperationID: op.ID,
		UserID:      op.UserID,
		JobType:     op.JobType,
		TraceID:     op.TraceID,
	}
}

func TestProcessor_Process_Success(t *testing.T) {
	handler := &fakeHandler{
		jobType: model.JobTypeWeeklyReflection,
		steps:   []string{pubsub.StepConsolidating, pubsub.StepGenerating, pubsub.StepSaving},
		result:  model.JSONMap{"draft_id": 7},
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.NoError(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusCompleted, found.Status)
	assert.Equal(t, 100, found.Progress)
	assert.NotNil(t, found.StartedAt)
	assert.NotNil(t, found.CompletedAt)
	assert.EqualValues(t, 7, found.ResultData["draft_id"])
	assert.Equal(t, 1, handler.processed)
}

func TestProcessor_Process_HandlerFailure(t *testing.T) {
	handler := &fakeHandler{
		jobType:    model.JobTypeWeeklyReflection,
		processErr: errors.New("db exploded"),
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	err := processor.Process(context.Background(), messageFor(op))
	require.Error(t, err)

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusFailed, found.Status)
	assert.Equal(t, model.ErrorKindPersistence, found.ErrorKind)
	assert.Contains(t, found.ErrorMessage, "db exploded")
}

func TestProcessor_Process_DuplicateFailure(t *testing.T) {
	handler := &fakeHandler{
		jobType:    model.JobTypeWeeklyReflection,
		processErr: ErrDuplicateDraft,
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.Error(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.ErrorKindDuplicate, found.ErrorKind)
}

func TestProcessor_Process_UnknownJobType(t *testing.T) {
	processor, db, cleanup := setupProcessor(t) // 没有注册任何处理器
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.Error(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusFailed, found.Status)
	assert.Equal(t, model.ErrorKindValidation, found.ErrorKind)
}

func TestProcessor_Process_ValidationFailure(t *testing.T) {
	handler := &fakeHandler{
		jobType:     model.JobTypeWeeklyReflection,
		validateErr: ErrInvalidInput,
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.Error(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.ErrorKindValidation, found.ErrorKind)
	assert.Equal(t, 0, handler.processed) // 校验失败不进入处理
}

func TestProcessor_Process_TerminalSkipped(t *testing.T) {
	handler := &fakeHandler{jobType: model.JobTypeWeeklyReflection}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID, testutil.WithStatus(model.OperationStatusCompleted))

	require.NoError(t, processor.Process(context.Background(), messageFor(op)))
	assert.Equal(t, 0, handler.processed)
}

func TestProcessor_Process_AlreadyClaimedSkipped(t *testing.T) {
	handler := &fakeHandler{jobType: model.JobTypeWeeklyReflection}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID, testutil.WithStatus(model.OperationStatusProcessing))

	require.NoError(t, processor.Process(context.Background(), messageFor(op)))
	assert.Equal(t, 0, handler.processed)

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusProcessing, found.Status)
}

func TestProcessor_Process_TimeoutClassification(t *testing.T) {
	handler := &fakeHandler{
		jobType:    model.JobTypeWeeklyReflection,
		processErr: context.DeadlineExceeded,
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.Error(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.ErrorKindTimeout, found.ErrorKind)
}

func TestProcessor_Process_OutOfOrderStepsStillComplete(t *testing.T) {
	handler := &fakeHandler{
		jobType: model.JobTypeWeeklyReflection,
		// 乱序上报，落库进度只能前进，最终完成置 100
		steps:  []string{pubsub.StepGenerating, pubsub.StepCheckingSources, pubsub.StepSaving},
		result: model.JSONMap{},
	}
	processor, db, cleanup := setupProcessor(t, handler)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	require.NoError(t, processor.Process(context.Background(), messageFor(op)))

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusCompleted, found.Status)
	assert.Equal(t, 100, found.Progress)
}

func TestProcessor_FailStaleOperations(t *testing.T) {
	processor, db, cleanup := setupProcessor(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	op := testutil.TestOperation(t, db, user.ID)

	opRepo := repository.NewOperationRepository(db)
	_, err := opRepo.ClaimQueued(op.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	processor.FailStaleOperations()

	var found model.Operation
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, model.OperationStatusFailed, found.Status)
	assert.Equal(t, model.ErrorKindTimeout, found.ErrorKind)
}
