package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
)

// CompetitionRepository handles competitions and both membership kinds:
// progress-tracked participations and simple memberships.
type CompetitionRepository struct {
	db DBTX
}

// NewCompetitionRepository creates a new CompetitionRepository instance.
func NewCompetitionRepository(db DBTX) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CompetitionRepository) WithTx(tx pgx.Tx) *CompetitionRepository {
	return &CompetitionRepository{db: tx}
}

// Create creates a new competition.
func (r *CompetitionRepository) Create(ctx context.Context, title string, description *string, startAt, endAt *time.Time, active bool) (*model.Competition, error) {
	const query = `
		INSERT INTO competitions (title, description, start_at, end_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, title, description, start_at, end_at, active, created_at
	`

	var c model.Competition
	err := r.db.QueryRow(ctx, query, title, description, startAt, endAt, active).Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.StartAt,
		&c.EndAt,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}

	return &c, nil
}

// GetByID retrieves a competition by id.
func (r *CompetitionRepository) GetByID(ctx context.Context, id int64) (*model.Competition, error) {
	const query = `
		SELECT id, title, description, start_at, end_at, active, created_at
		FROM competitions
		WHERE id = $1
	`

	return r.scanCompetition(r.db.QueryRow(ctx, query, id))
}

// GetByTitle retrieves a competition by exact title.
func (r *CompetitionRepository) GetByTitle(ctx context.Context, title string) (*model.Competition, error) {
	const query = `
		SELECT id, title, description, start_at, end_at, active, created_at
		FROM competitions
		WHERE title = $1
	`

	return r.scanCompetition(r.db.QueryRow(ctx, query, title))
}

func (r *CompetitionRepository) scanCompetition(row pgx.Row) (*model.Competition, error) {
	var c model.Competition
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.StartAt,
		&c.EndAt,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}

	return &c, nil
}

// List returns all competitions ordered by id.
func (r *CompetitionRepository) List(ctx context.Context) ([]*model.Competition, error) {
	const query = `
		SELECT id, title, description, start_at, end_at, active, created_at
		FROM competitions
		ORDER BY id ASC
	`

	return r.queryCompetitions(ctx, query)
}

// ListActive returns competitions currently open for joining.
func (r *CompetitionRepository) ListActive(ctx context.Context) ([]*model.Competition, error) {
	const query = `
		SELECT id, title, description, start_at, end_at, active, created_at
		FROM competitions
		WHERE active = TRUE
		ORDER BY id ASC
	`

	return r.queryCompetitions(ctx, query)
}

func (r *CompetitionRepository) queryCompetitions(ctx context.Context, query string, args ...any) ([]*model.Competition, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	var competitions []*model.Competition
	for rows.Next() {
		var c model.Competition
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.StartAt,
			&c.EndAt,
			&c.Active,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		competitions = append(competitions, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitions: %w", err)
	}

	return competitions, nil
}

// SetActive toggles whether a competition accepts joins.
func (r *CompetitionRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE competitions SET active = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCompetitionNotFound
	}

	return nil
}

// Delete removes a competition row. Child participations and memberships
// must be deleted first; callers run the cascade inside one transaction.
func (r *CompetitionRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM competitions WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete competition: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCompetitionNotFound
	}

	return nil
}

// DeleteMembershipsByCompetition removes every membership row of a
// competition.
func (r *CompetitionRepository) DeleteMembershipsByCompetition(ctx context.Context, competitionID int64) error {
	const query = `DELETE FROM memberships WHERE competition_id = $1`

	if _, err := r.db.Exec(ctx, query, competitionID); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}

	return nil
}

// Join records a progress-tracked participation. A second join of the same
// competition by the same user is a no-op and reports joined=false; the
// unique constraint on (user_id, competition_id) closes the concurrent
// double-join race.
func (r *CompetitionRepository) Join(ctx context.Context, userID string, competitionID int64) (bool, error) {
	const query = `
		INSERT INTO participations (user_id, competition_id, progress, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (user_id, competition_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, userID, competitionID)
	if err != nil {
		return false, fmt.Errorf("failed to join competition: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetParticipation retrieves a user's participation in a competition.
func (r *CompetitionRepository) GetParticipation(ctx context.Context, userID string, competitionID int64) (*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE user_id = $1 AND competition_id = $2
	`

	return r.scanParticipation(r.db.QueryRow(ctx, query, userID, competitionID))
}

// GetParticipationForUpdate retrieves a participation with a row lock so
// progress can be banked and the row deleted atomically.
func (r *CompetitionRepository) GetParticipationForUpdate(ctx context.Context, userID string, competitionID int64) (*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE user_id = $1 AND competition_id = $2
		FOR UPDATE
	`

	return r.scanParticipation(r.db.QueryRow(ctx, query, userID, competitionID))
}

// GetParticipationByIDForUpdate retrieves a participation by primary key
// with a row lock.
func (r *CompetitionRepository) GetParticipationByIDForUpdate(ctx context.Context, id int64) (*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanParticipation(r.db.QueryRow(ctx, query, id))
}

func (r *CompetitionRepository) scanParticipation(row pgx.Row) (*model.Participation, error) {
	var p model.Participation
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.CompetitionID,
		&p.Progress,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipationNotFound
		}
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}

	return &p, nil
}

// AddProgress adjusts a participation's progress by delta. Negative deltas
// are applied as-is; the stored progress may go negative.
func (r *CompetitionRepository) AddProgress(ctx context.Context, userID string, competitionID int64, delta int64) (int64, error) {
	const query = `
		UPDATE participations
		SET progress = progress + $3, updated_at = NOW()
		WHERE user_id = $1 AND competition_id = $2
		RETURNING progress
	`

	var progress int64
	err := r.db.QueryRow(ctx, query, userID, competitionID, delta).Scan(&progress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrParticipationNotFound
		}
		return 0, fmt.Errorf("failed to update progress: %w", err)
	}

	return progress, nil
}

// DeleteParticipation removes a participation row.
func (r *CompetitionRepository) DeleteParticipation(ctx context.Context, userID string, competitionID int64) error {
	const query = `
		DELETE FROM participations
		WHERE user_id = $1 AND competition_id = $2
	`

	result, err := r.db.Exec(ctx, query, userID, competitionID)
	if err != nil {
		return fmt.Errorf("failed to delete participation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrParticipationNotFound
	}

	return nil
}

// DeleteParticipationByID removes a participation row by primary key.
func (r *CompetitionRepository) DeleteParticipationByID(ctx context.Context, id int64) error {
	const query = `DELETE FROM participations WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete participation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrParticipationNotFound
	}

	return nil
}

// ListParticipations returns all of a user's participations.
func (r *CompetitionRepository) ListParticipations(ctx context.Context, userID string) ([]*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE user_id = $1
		ORDER BY id ASC
	`

	return r.queryParticipations(ctx, query, userID)
}

// ListParticipants returns every participation in a competition.
func (r *CompetitionRepository) ListParticipants(ctx context.Context, competitionID int64) ([]*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE competition_id = $1
		ORDER BY id ASC
	`

	return r.queryParticipations(ctx, query, competitionID)
}

// ListParticipantsForUpdate locks and returns every participation in a
// competition so they can be banked and deleted atomically.
func (r *CompetitionRepository) ListParticipantsForUpdate(ctx context.Context, competitionID int64) ([]*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE competition_id = $1
		ORDER BY id ASC
		FOR UPDATE
	`

	return r.queryParticipations(ctx, query, competitionID)
}

// ListParticipationsForUpdate locks and returns every participation of a
// user across competitions.
func (r *CompetitionRepository) ListParticipationsForUpdate(ctx context.Context, userID string) ([]*model.Participation, error) {
	const query = `
		SELECT id, user_id, competition_id, progress, updated_at
		FROM participations
		WHERE user_id = $1
		ORDER BY id ASC
		FOR UPDATE
	`

	return r.queryParticipations(ctx, query, userID)
}

func (r *CompetitionRepository) queryParticipations(ctx context.Context, query string, args ...any) ([]*model.Participation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	defer rows.Close()

	var participations []*model.Participation
	for rows.Next() {
		var p model.Participation
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.CompetitionID,
			&p.Progress,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return participations, nil
}

// SumProgress returns the total in-flight progress a user holds across all
// competitions.
func (r *CompetitionRepository) SumProgress(ctx context.Context, userID string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(progress), 0)
		FROM participations
		WHERE user_id = $1
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum progress: %w", err)
	}

	return total, nil
}

// DistinctParticipantIDs returns every user identifier with at least one
// participation.
func (r *CompetitionRepository) DistinctParticipantIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM participations ORDER BY user_id ASC`

	return scanUserIDs(ctx, r.db, query)
}

// AddMember records a simple membership. Repeat joins insert additional
// rows; duplicates are allowed in this table.
func (r *CompetitionRepository) AddMember(ctx context.Context, userID string, competitionID int64) (*model.Membership, error) {
	const query = `
		INSERT INTO memberships (user_id, competition_id, joined_at)
		VALUES ($1, $2, NOW())
		RETURNING id, user_id, competition_id, joined_at
	`

	var m model.Membership
	err := r.db.QueryRow(ctx, query, userID, competitionID).Scan(
		&m.ID,
		&m.UserID,
		&m.CompetitionID,
		&m.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return &m, nil
}

// RemoveOldestMembership deletes the user's oldest membership row in a
// competition, leaving any later duplicates in place.
func (r *CompetitionRepository) RemoveOldestMembership(ctx context.Context, userID string, competitionID int64) error {
	const query = `
		DELETE FROM memberships
		WHERE id = (
			SELECT id FROM memberships
			WHERE user_id = $1 AND competition_id = $2
			ORDER BY id ASC
			LIMIT 1
		)
	`

	result, err := r.db.Exec(ctx, query, userID, competitionID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// ListMembers returns the membership rows of a competition, duplicates
// included.
func (r *CompetitionRepository) ListMembers(ctx context.Context, competitionID int64) ([]*model.Membership, error) {
	const query = `
		SELECT id, user_id, competition_id, joined_at
		FROM memberships
		WHERE competition_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var memberships []*model.Membership
	for rows.Next() {
		var m model.Membership
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.CompetitionID,
			&m.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}

// ListMembershipsForUser returns a user's membership rows across all
// competitions.
func (r *CompetitionRepository) ListMembershipsForUser(ctx context.Context, userID string) ([]*model.Membership, error) {
	const query = `
		SELECT id, user_id, competition_id, joined_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*model.Membership
	for rows.Next() {
		var m model.Membership
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.CompetitionID,
			&m.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}
