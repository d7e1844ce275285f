package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
)

// TeamRepository handles the roster backing the team leaderboard.
type TeamRepository struct {
	db DBTX
}

// NewTeamRepository creates a new TeamRepository instance.
func NewTeamRepository(db DBTX) *TeamRepository {
	return &TeamRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TeamRepository) WithTx(tx pgx.Tx) *TeamRepository {
	return &TeamRepository{db: tx}
}

// Add puts a user on the team roster. Re-adding moves the user to the
// given team.
func (r *TeamRepository) Add(ctx context.Context, userID, teamName string) error {
	const query = `
		INSERT INTO team_members (user_id, team_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET team_name = $2
	`

	if _, err := r.db.Exec(ctx, query, userID, teamName); err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}

	return nil
}

// Remove takes a user off the roster.
func (r *TeamRepository) Remove(ctx context.Context, userID string) error {
	const query = `DELETE FROM team_members WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}

// List returns the roster ordered by user id.
func (r *TeamRepository) List(ctx context.Context) ([]*model.TeamMember, error) {
	const query = `
		SELECT id, user_id, team_name, created_at
		FROM team_members
		ORDER BY user_id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []*model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.TeamName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}

	return members, nil
}

// UserIDs returns the roster as plain identifiers.
func (r *TeamRepository) UserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT user_id FROM team_members ORDER BY user_id ASC`

	return scanUserIDs(ctx, r.db, query)
}
