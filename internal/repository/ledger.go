package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
)

// LedgerRepository handles the manual point entries, the reward catalogue
// and the redemption log.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// AddManualPoints adds delta to a user's manual entry on a board, creating
// the row when absent. Returns the resulting points value.
func (r *LedgerRepository) AddManualPoints(ctx context.Context, userID, board string, delta int64) (int64, error) {
	const query = `
		INSERT INTO manual_entries (user_id, board, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, board)
		DO UPDATE SET points = manual_entries.points + $3
		RETURNING points
	`

	var points int64
	if err := r.db.QueryRow(ctx, query, userID, board, delta).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to add manual points: %w", err)
	}

	return points, nil
}

// SetManualPoints overwrites a user's manual entry on a board, creating
// the row when absent. Returns whether a new row was created.
func (r *LedgerRepository) SetManualPoints(ctx context.Context, userID, board string, points int64) (bool, error) {
	const query = `
		INSERT INTO manual_entries (user_id, board, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, board)
		DO UPDATE SET points = $3
		RETURNING (xmax = 0)
	`

	var created bool
	if err := r.db.QueryRow(ctx, query, userID, board, points).Scan(&created); err != nil {
		return false, fmt.Errorf("failed to set manual points: %w", err)
	}

	return created, nil
}

// ManualPoints returns a user's manual entry on a board, zero when absent.
func (r *LedgerRepository) ManualPoints(ctx context.Context, userID, board string) (int64, error) {
	const query = `
		SELECT COALESCE(
			(SELECT points FROM manual_entries WHERE user_id = $1 AND board = $2),
			0
		)
	`

	var points int64
	if err := r.db.QueryRow(ctx, query, userID, board).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to get manual points: %w", err)
	}

	return points, nil
}

// DeleteManualEntries removes every manual entry of a user across all
// boards.
func (r *LedgerRepository) DeleteManualEntries(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM manual_entries WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete manual entries: %w", err)
	}

	return result.RowsAffected(), nil
}

// DistinctManualUserIDs returns every user identifier holding a manual
// entry on the given board.
func (r *LedgerRepository) DistinctManualUserIDs(ctx context.Context, board string) ([]string, error) {
	const query = `
		SELECT DISTINCT user_id FROM manual_entries
		WHERE board = $1
		ORDER BY user_id ASC
	`

	return scanUserIDs(ctx, r.db, query, board)
}

// CreateReward adds a reward to the catalogue.
func (r *LedgerRepository) CreateReward(ctx context.Context, name string, description *string, points int64) (*model.Reward, error) {
	const query = `
		INSERT INTO rewards (name, description, points, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, name, description, points, created_at
	`

	var reward model.Reward
	err := r.db.QueryRow(ctx, query, name, description, points).Scan(
		&reward.ID,
		&reward.Name,
		&reward.Description,
		&reward.Points,
		&reward.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return &reward, nil
}

// GetReward retrieves a reward by id.
func (r *LedgerRepository) GetReward(ctx context.Context, id int64) (*model.Reward, error) {
	const query = `
		SELECT id, name, description, points, created_at
		FROM rewards
		WHERE id = $1
	`

	var reward model.Reward
	err := r.db.QueryRow(ctx, query, id).Scan(
		&reward.ID,
		&reward.Name,
		&reward.Description,
		&reward.Points,
		&reward.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return &reward, nil
}

// ListRewards returns the catalogue ordered cheapest first.
func (r *LedgerRepository) ListRewards(ctx context.Context) ([]*model.Reward, error) {
	const query = `
		SELECT id, name, description, points, created_at
		FROM rewards
		ORDER BY points ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*model.Reward
	for rows.Next() {
		var reward model.Reward
		err := rows.Scan(
			&reward.ID,
			&reward.Name,
			&reward.Description,
			&reward.Points,
			&reward.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, &reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards: %w", err)
	}

	return rewards, nil
}

// DeleteReward removes a reward from the catalogue. Past redemptions keep
// their recorded cost.
func (r *LedgerRepository) DeleteReward(ctx context.Context, id int64) error {
	const query = `DELETE FROM rewards WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRewardNotFound
	}

	return nil
}

// RecordRedemption logs a reward spend. The reward's id and cost are
// recorded so the spend survives later catalogue changes.
func (r *LedgerRepository) RecordRedemption(ctx context.Context, userID string, rewardID, points int64) (*model.Redemption, error) {
	const query = `
		INSERT INTO redemptions (user_id, reward_id, points, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, reward_id, points, created_at
	`

	var red model.Redemption
	err := r.db.QueryRow(ctx, query, userID, rewardID, points).Scan(
		&red.ID,
		&red.UserID,
		&red.RewardID,
		&red.Points,
		&red.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	return &red, nil
}

// SpentPoints returns the total points a user has spent.
func (r *LedgerRepository) SpentPoints(ctx context.Context, userID string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(points), 0)
		FROM redemptions
		WHERE user_id = $1
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum spent points: %w", err)
	}

	return total, nil
}

// UserKnown reports whether a user identifier appears anywhere the system
// tracks identity: the accounts table, unlocks, participations, memberships
// or manual entries. Donations may only target known users.
func (r *LedgerRepository) UserKnown(ctx context.Context, userID string) (bool, error) {
	const query = `
		SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)
		    OR EXISTS(SELECT 1 FROM user_achievements WHERE user_id = $1)
		    OR EXISTS(SELECT 1 FROM participations WHERE user_id = $1)
		    OR EXISTS(SELECT 1 FROM memberships WHERE user_id = $1)
		    OR EXISTS(SELECT 1 FROM manual_entries WHERE user_id = $1)
	`

	var known bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&known); err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}

	return known, nil
}
