package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func setupDraftService(t *testing.T) (*DraftService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewDraftService(repository.NewDraftRepository(db), nil)
	return svc, db, func() { testutil.CleanupTestDB(t, db) }
}

func TestDraftService_List(t *testing.T) {
	svc, db, cleanup := setupDraftService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestDraft(t, db, user.ID, 2026, 24)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	items, err := svc.List(user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 25, items[0].WeekNumber)
}

func TestDraftService_GetByWeek(t *testing.T) {
	svc, db, cleanup := setupDraftService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	detail, err := svc.GetByWeek(user.ID, 2026, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, detail.WeekNumber)
	assert.NotEmpty(t, detail.Done)
}

func TestDraftService_GetByWeek_NotFound(t *testing.T) {
	svc, db, cleanup := setupDraftService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.GetByWeek(user.ID, 2026, 30)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftService_Export_ArchiveDisabled(t *testing.T) {
	svc, db, cleanup := setupDraftService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	_, err := svc.Export(user.ID, 2026, 25)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
