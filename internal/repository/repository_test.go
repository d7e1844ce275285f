// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"gamification-api/internal/model"
	"gamification-api/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = db.Migrate(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int64(0), user.BankedPoints)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AddBankedPoints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "hash")
	require.NoError(t, err)

	banked, err := repo.AddBankedPoints(ctx, "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(30), banked)

	banked, err = repo.AddBankedPoints(ctx, "alice", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(50), banked)

	_, err = repo.AddBankedPoints(ctx, "nobody", 100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_BankedPointsUnknownUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	// Unregistered identities hold no banked balance but are not an error.
	banked, err := repo.BankedPoints(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), banked)
}

// ============================================================================
// AchievementRepository Tests
// ============================================================================

func TestAchievementRepository_UnlockFlow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, "first-steps", nil, model.RarityRare)
	require.NoError(t, err)
	assert.False(t, a.Deleted)

	has, err := repo.HasUnlock(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.False(t, has)

	ua, err := repo.Unlock(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", ua.UserID)
	assert.Equal(t, a.ID, ua.AchievementID)

	has, err = repo.HasUnlock(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, has)

	unlocks, err := repo.ListUnlocks(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, unlocks, 1)
}

func TestAchievementRepository_SoftDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	ctx := context.Background()

	a, err := repo.Create(ctx, "retired", nil, model.RarityCommon)
	require.NoError(t, err)
	_, err = repo.Unlock(ctx, "alice", a.ID)
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, a.ID))

	// The row still resolves for historical unlocks.
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.NotEqual(t, "retired", got.Name)

	// The original name is free again.
	_, err = repo.Create(ctx, "retired", nil, model.RarityCommon)
	require.NoError(t, err)

	// Visible listing excludes the deleted row.
	visible, err := repo.ListVisible(ctx)
	require.NoError(t, err)
	for _, v := range visible {
		assert.False(t, v.Deleted)
	}

	err = repo.SoftDelete(ctx, 99999)
	assert.ErrorIs(t, err, ErrAchievementNotFound)
}

func TestAchievementRepository_Celebrations(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.CreateCelebration(ctx, "alice", "first-steps", "alice unlocked first-steps!"))
	require.NoError(t, repo.CreateCelebration(ctx, "bob", "first-steps", "bob unlocked first-steps!"))

	celebrations, err := repo.RecentCelebrations(ctx, 20)
	require.NoError(t, err)
	require.Len(t, celebrations, 2)
	// Newest first
	assert.Equal(t, "bob", celebrations[0].UserID)
}

// ============================================================================
// CompetitionRepository Tests
// ============================================================================

func TestCompetitionRepository_JoinIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	comp, err := repo.Create(ctx, "spring-sprint", nil, nil, nil, true)
	require.NoError(t, err)

	created, err := repo.Join(ctx, "alice", comp.ID)
	require.NoError(t, err)
	assert.True(t, created)

	first, err := repo.GetParticipation(ctx, "alice", comp.ID)
	require.NoError(t, err)

	// Second join is a no-op and keeps the same row.
	created, err = repo.Join(ctx, "alice", comp.ID)
	require.NoError(t, err)
	assert.False(t, created)

	second, err := repo.GetParticipation(ctx, "alice", comp.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	participants, err := repo.ListParticipants(ctx, comp.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)
}

func TestCompetitionRepository_AddProgress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	comp, err := repo.Create(ctx, "spring-sprint", nil, nil, nil, true)
	require.NoError(t, err)
	_, err = repo.Join(ctx, "alice", comp.ID)
	require.NoError(t, err)

	progress, err := repo.AddProgress(ctx, "alice", comp.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(15), progress)

	progress, err = repo.AddProgress(ctx, "alice", comp.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(30), progress)

	// Negative deltas are applied without a floor.
	progress, err = repo.AddProgress(ctx, "alice", comp.ID, -50)
	require.NoError(t, err)
	assert.Equal(t, int64(-20), progress)

	_, err = repo.AddProgress(ctx, "bob", comp.ID, 10)
	assert.ErrorIs(t, err, ErrParticipationNotFound)
}

func TestCompetitionRepository_MembershipDuplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	comp, err := repo.Create(ctx, "fitness", nil, nil, nil, true)
	require.NoError(t, err)

	// Simple membership allows duplicate rows.
	_, err = repo.AddMember(ctx, "alice", comp.ID)
	require.NoError(t, err)
	_, err = repo.AddMember(ctx, "alice", comp.ID)
	require.NoError(t, err)

	members, err := repo.ListMembers(ctx, comp.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// Removing deletes only the oldest row.
	require.NoError(t, repo.RemoveOldestMembership(ctx, "alice", comp.ID))
	members, err = repo.ListMembers(ctx, comp.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, repo.RemoveOldestMembership(ctx, "alice", comp.ID))
	err = repo.RemoveOldestMembership(ctx, "alice", comp.ID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestCompetitionRepository_SumProgress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	comp1, err := repo.Create(ctx, "one", nil, nil, nil, true)
	require.NoError(t, err)
	comp2, err := repo.Create(ctx, "two", nil, nil, nil, true)
	require.NoError(t, err)

	_, err = repo.Join(ctx, "alice", comp1.ID)
	require.NoError(t, err)
	_, err = repo.Join(ctx, "alice", comp2.ID)
	require.NoError(t, err)
	_, err = repo.AddProgress(ctx, "alice", comp1.ID, 10)
	require.NoError(t, err)
	_, err = repo.AddProgress(ctx, "alice", comp2.ID, -3)
	require.NoError(t, err)

	total, err := repo.SumProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)

	total, err = repo.SumProgress(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCompetitionRepository_ParticipationByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	comp, err := repo.Create(ctx, "sprint", nil, nil, nil, true)
	require.NoError(t, err)

	_, err = repo.Join(ctx, "alice", comp.ID)
	require.NoError(t, err)
	participation, err := repo.GetParticipation(ctx, "alice", comp.ID)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	got, err := repo.WithTx(tx).GetParticipationByIDForUpdate(ctx, participation.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, comp.ID, got.CompetitionID)

	require.NoError(t, repo.WithTx(tx).DeleteParticipationByID(ctx, participation.ID))
	require.NoError(t, tx.Commit(ctx))

	_, err = repo.GetParticipation(ctx, "alice", comp.ID)
	assert.ErrorIs(t, err, ErrParticipationNotFound)

	err = repo.DeleteParticipationByID(ctx, participation.ID)
	assert.ErrorIs(t, err, ErrParticipationNotFound)
}

func TestCompetitionRepository_GetByTitle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCompetitionRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, "learning", nil, nil, nil, true)
	require.NoError(t, err)

	got, err := repo.GetByTitle(ctx, "learning")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.GetByTitle(ctx, "missing")
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

// ============================================================================
// LedgerRepository Tests
// ============================================================================

func TestLedgerRepository_ManualPointsUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	points, err := repo.AddManualPoints(ctx, "alice", model.BoardGlobal, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), points)

	points, err = repo.AddManualPoints(ctx, "alice", model.BoardGlobal, -25)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), points)

	// Boards are independent.
	points, err = repo.AddManualPoints(ctx, "alice", model.BoardMonthly, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), points)

	got, err := repo.ManualPoints(ctx, "alice", model.BoardGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), got)

	got, err = repo.ManualPoints(ctx, "nobody", model.BoardGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestLedgerRepository_SetManualPoints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	created, err := repo.SetManualPoints(ctx, "dave", model.BoardGlobal, 450)
	require.NoError(t, err)
	assert.True(t, created)

	// Setting again overwrites rather than accumulates.
	created, err = repo.SetManualPoints(ctx, "dave", model.BoardGlobal, 450)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.ManualPoints(ctx, "dave", model.BoardGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(450), got)

	created, err = repo.SetManualPoints(ctx, "dave", model.BoardGlobal, 30)
	require.NoError(t, err)
	assert.False(t, created)

	got, err = repo.ManualPoints(ctx, "dave", model.BoardGlobal)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got)
}

func TestLedgerRepository_RewardsAndRedemptions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLedgerRepository(pool)
	ctx := context.Background()

	expensive, err := repo.CreateReward(ctx, "hoodie", nil, 200)
	require.NoError(t, err)
	cheap, err := repo.CreateReward(ctx, "sticker", nil, 10)
	require.NoError(t, err)

	// Catalogue is ordered cheapest first.
	rewards, err := repo.ListRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, cheap.ID, rewards[0].ID)
	assert.Equal(t, expensive.ID, rewards[1].ID)

	_, err = repo.RecordRedemption(ctx, "alice", cheap.ID, cheap.Points)
	require.NoError(t, err)
	_, err = repo.RecordRedemption(ctx, "alice", cheap.ID, cheap.Points)
	require.NoError(t, err)

	spent, err := repo.SpentPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(20), spent)

	require.NoError(t, repo.DeleteReward(ctx, expensive.ID))
	err = repo.DeleteReward(ctx, expensive.ID)
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestLedgerRepository_UserKnown(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ledger := NewLedgerRepository(pool)
	users := NewUserRepository(pool)
	competitions := NewCompetitionRepository(pool)

	known, err := ledger.UserKnown(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, known)

	// Registration makes a user known.
	_, err = users.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	known, err = ledger.UserKnown(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, known)

	// A bare participation is enough, no account required.
	comp, err := competitions.Create(ctx, "fitness", nil, nil, nil, true)
	require.NoError(t, err)
	_, err = competitions.Join(ctx, "bob", comp.ID)
	require.NoError(t, err)
	known, err = ledger.UserKnown(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, known)
}

// ============================================================================
// TeamRepository Tests
// ============================================================================

func TestTeamRepository_Roster(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTeamRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "bob", "platform"))
	require.NoError(t, repo.Add(ctx, "alice", "platform"))
	// Re-adding moves the member, no duplicate row.
	require.NoError(t, repo.Add(ctx, "alice", "core"))

	ids, err := repo.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)

	members, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "core", members[0].TeamName)

	require.NoError(t, repo.Remove(ctx, "alice"))
	err = repo.Remove(ctx, "alice")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
