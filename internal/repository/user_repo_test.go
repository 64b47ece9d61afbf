package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/testutil"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	email := "alice@example.com"
	hash := "$2a$10$hash"
	user := &model.User{
		Username:     "alice",
		Email:        &email,
		PasswordHash: &hash,
	}
	require.NoError(t, repo.Create(user))
	assert.NotZero(t, user.ID)

	byEmail, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestUserRepository_GetByGithubID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithGithubToken("gh-123", "token-abc"))

	found, err := repo.GetByGithubID("gh-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	require.NotNil(t, found.GithubToken)
	assert.Equal(t, "token-abc", *found.GithubToken)
}

func TestUserRepository_ManualQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	user := testutil.TestUser(t, db)

	require.NoError(t, repo.IncrementManualQuota(user.ID))
	require.NoError(t, repo.IncrementManualQuota(user.ID))

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.ManualQuotaToday)

	require.NoError(t, repo.DecrementManualQuota(user.ID))
	found, _ = repo.GetByID(user.ID)
	assert.Equal(t, 1, found.ManualQuotaToday)
}

func TestUserRepository_DecrementManualQuota_NotBelowZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	user := testutil.TestUser(t, db)

	require.NoError(t, repo.DecrementManualQuota(user.ID))

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.ManualQuotaToday)
}

func TestUserRepository_ResetAllQuotas(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	u1 := testutil.TestUser(t, db, testutil.WithManualQuotaUsed(3))
	u2 := testutil.TestUser(t, db, testutil.WithManualQuotaUsed(1))

	nextReset := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, repo.ResetAllQuotas(nextReset))

	for _, id := range []int64{u1.ID, u2.ID} {
		found, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, 0, found.ManualQuotaToday)
		assert.NotNil(t, found.QuotaResetAt)
	}
}

func TestUserRepository_ListIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	u1 := testutil.TestUser(t, db)
	u2 := testutil.TestUser(t, db)

	ids, err := repo.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{u1.ID, u2.ID}, ids)
}

func TestUserRepository_Exists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	testutil.TestUser(t, db, testutil.WithUsername("bob"), testutil.WithEmail("bob@example.com"))

	exists, err := repo.ExistsByUsername("bob")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
