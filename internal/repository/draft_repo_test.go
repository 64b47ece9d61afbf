package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func TestDraftRepository_Create_FirstWriterWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDraftRepository(db)
	user := testutil.TestUser(t, db)

	first := &model.DraftReflection{
		UserID: user.ID, WeekNumber: 25, Year: 2026,
		Content:           model.DraftContent{Done: []string{"v1"}},
		SourceOperationID: 1,
	}
	inserted, err := repo.Create(first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, first.ID)

	// 同一周的第二次写入不覆盖已有草稿
	second := &model.DraftReflection{
		UserID: user.ID, WeekNumber: 25, Year: 2026,
		Content:           model.DraftContent{Done: []string{"v2"}, Next: []string{"下一步"}},
		ReducedConfidence: true,
		SourceOperationID: 2,
	}
	inserted, err = repo.Create(second)
	require.NoError(t, err)
	assert.False(t, inserted)

	found, err := repo.GetByWeek(user.ID, 2026, 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, found.Content.Done)
	assert.False(t, found.ReducedConfidence)
	assert.Equal(t, int64(1), found.SourceOperationID)

	drafts, err := repo.ListByUser(user.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	// 别的周不受影响
	inserted, err = repo.Create(&model.DraftReflection{
		UserID: user.ID, WeekNumber: 26, Year: 2026,
		Content:           model.DraftContent{Done: []string{"w26"}},
		SourceOperationID: 3,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestDraftRepository_ExistsForWeek(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDraftRepository(db)
	user := testutil.TestUser(t, db)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	exists, err := repo.ExistsForWeek(user.ID, 2026, 25)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForWeek(user.ID, 2026, 26)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDraftRepository_GetByWeek_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDraftRepository(db)

	_, err := repo.GetByWeek(1, 2026, 25)
	assert.Error(t, err)
}

func TestDraftRepository_ListByUser_Ordering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDraftRepository(db)
	user := testutil.TestUser(t, db)

	testutil.TestDraft(t, db, user.ID, 2025, 52)
	testutil.TestDraft(t, db, user.ID, 2026, 1)
	testutil.TestDraft(t, db, user.ID, 2026, 25)

	drafts, err := repo.ListByUser(user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.Equal(t, 2026, drafts[0].Year)
	assert.Equal(t, 25, drafts[0].WeekNumber)
	assert.Equal(t, 2025, drafts[2].Year)
}

func TestDraftRepository_UpdateArchiveURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDraftRepository(db)
	user := testutil.TestUser(t, db)
	draft := testutil.TestDraft(t, db, user.ID, 2026, 25)

	err := repo.UpdateArchiveURL(draft.ID, "https://cdn.example.com/drafts/1/2026-W25.json")
	require.NoError(t, err)

	found, err := repo.GetByID(draft.ID)
	require.NoError(t, err)
	assert.Contains(t, found.ArchiveURL, "2026-W25.json")
}
