package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
)

// AchievementRepository handles achievements, unlock records and the
// celebration feed.
type AchievementRepository struct {
	db DBTX
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(db DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AchievementRepository) WithTx(tx pgx.Tx) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// Create creates a new achievement.
func (r *AchievementRepository) Create(ctx context.Context, name string, description *string, rarity string) (*model.Achievement, error) {
	const query = `
		INSERT INTO achievements (name, description, rarity, deleted, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, name, description, rarity, deleted, created_at
	`

	var a model.Achievement
	err := r.db.QueryRow(ctx, query, name, description, rarity).Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Rarity,
		&a.Deleted,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create achievement: %w", err)
	}

	return &a, nil
}

// GetByID retrieves an achievement by id, including soft-deleted rows so
// historical unlocks keep resolving.
func (r *AchievementRepository) GetByID(ctx context.Context, id int64) (*model.Achievement, error) {
	const query = `
		SELECT id, name, description, rarity, deleted, created_at
		FROM achievements
		WHERE id = $1
	`

	var a model.Achievement
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Rarity,
		&a.Deleted,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}

	return &a, nil
}

// ListVisible returns all non-deleted achievements ordered by name.
func (r *AchievementRepository) ListVisible(ctx context.Context) ([]*model.Achievement, error) {
	const query = `
		SELECT id, name, description, rarity, deleted, created_at
		FROM achievements
		WHERE deleted = FALSE
		ORDER BY name ASC
	`

	return r.queryAchievements(ctx, query)
}

func (r *AchievementRepository) queryAchievements(ctx context.Context, query string, args ...any) ([]*model.Achievement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*model.Achievement
	for rows.Next() {
		var a model.Achievement
		err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Description,
			&a.Rarity,
			&a.Deleted,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return achievements, nil
}

// SoftDelete flags an achievement as deleted and renames it so the unique
// name is freed while the row keeps resolving for historical unlocks.
func (r *AchievementRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `
		UPDATE achievements
		SET deleted = TRUE,
		    name = name || '_deleted_' || $2
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to soft delete achievement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAchievementNotFound
	}

	return nil
}

// HasUnlock checks whether a user has already unlocked an achievement.
func (r *AchievementRepository) HasUnlock(ctx context.Context, userID string, achievementID int64) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM user_achievements
			WHERE user_id = $1 AND achievement_id = $2
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, userID, achievementID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}

	return exists, nil
}

// Unlock records an unlock for a user.
func (r *AchievementRepository) Unlock(ctx context.Context, userID string, achievementID int64) (*model.UserAchievement, error) {
	const query = `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, NOW())
		RETURNING id, user_id, achievement_id, unlocked_at
	`

	var ua model.UserAchievement
	err := r.db.QueryRow(ctx, query, userID, achievementID).Scan(
		&ua.ID,
		&ua.UserID,
		&ua.AchievementID,
		&ua.UnlockedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record unlock: %w", err)
	}

	return &ua, nil
}

// RemoveUnlockByUser deletes a user's unlock of a specific achievement.
func (r *AchievementRepository) RemoveUnlockByUser(ctx context.Context, userID string, achievementID int64) error {
	const query = `
		DELETE FROM user_achievements
		WHERE user_id = $1 AND achievement_id = $2
	`

	result, err := r.db.Exec(ctx, query, userID, achievementID)
	if err != nil {
		return fmt.Errorf("failed to remove unlock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUnlockNotFound
	}

	return nil
}

// RemoveUnlockByID deletes an unlock row by its id.
func (r *AchievementRepository) RemoveUnlockByID(ctx context.Context, id int64) error {
	const query = `DELETE FROM user_achievements WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to remove unlock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUnlockNotFound
	}

	return nil
}

// ListUnlocks retrieves all unlock records for a user. Duplicate rows for
// the same achievement may exist in historical data and are returned as-is;
// point calculations deduplicate by achievement id.
func (r *AchievementRepository) ListUnlocks(ctx context.Context, userID string) ([]*model.UserAchievement, error) {
	const query = `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []*model.UserAchievement
	for rows.Next() {
		var ua model.UserAchievement
		err := rows.Scan(
			&ua.ID,
			&ua.UserID,
			&ua.AchievementID,
			&ua.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		unlocks = append(unlocks, &ua)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unlocks: %w", err)
	}

	return unlocks, nil
}

// DistinctUserIDs returns every user identifier with at least one unlock.
func (r *AchievementRepository) DistinctUserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM user_achievements ORDER BY user_id ASC`

	return scanUserIDs(ctx, r.db, query)
}

// CreateCelebration appends a celebration notice.
func (r *AchievementRepository) CreateCelebration(ctx context.Context, userID, achievementName, message string) error {
	const query = `
		INSERT INTO celebrations (user_id, achievement_name, message, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := r.db.Exec(ctx, query, userID, achievementName, message); err != nil {
		return fmt.Errorf("failed to create celebration: %w", err)
	}

	return nil
}

// RecentCelebrations returns the most recent celebration notices.
func (r *AchievementRepository) RecentCelebrations(ctx context.Context, limit int) ([]*model.Celebration, error) {
	const query = `
		SELECT id, user_id, achievement_name, message, created_at
		FROM celebrations
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list celebrations: %w", err)
	}
	defer rows.Close()

	var celebrations []*model.Celebration
	for rows.Next() {
		var c model.Celebration
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.AchievementName,
			&c.Message,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan celebration: %w", err)
		}
		celebrations = append(celebrations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating celebrations: %w", err)
	}

	return celebrations, nil
}

// scanUserIDs runs a single-column user id query shared by the distinct-user
// listings that feed leaderboard populations.
func scanUserIDs(ctx context.Context, db DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}

	return ids, nil
}
