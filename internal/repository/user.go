package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
)

// UserRepository handles user account persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Create creates a new user with a zero banked balance.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, banked_points, created_at)
		VALUES ($1, $2, 0, NOW())
		RETURNING id, username, password_hash, banked_points, created_at
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, username, passwordHash).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.BankedPoints,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetByUsername retrieves a user by username.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `
		SELECT id, username, password_hash, banked_points, created_at
		FROM users
		WHERE username = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.BankedPoints,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Exists checks if a user with the given username exists.
func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// AddBankedPoints credits amount to a user's permanent banked balance.
// Returns ErrUserNotFound when no row matches, so callers can surface
// banking failures instead of silently dropping the points.
func (r *UserRepository) AddBankedPoints(ctx context.Context, username string, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET banked_points = banked_points + $2
		WHERE username = $1
		RETURNING banked_points
	`

	var banked int64
	err := r.db.QueryRow(ctx, query, username, amount).Scan(&banked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to add banked points: %w", err)
	}

	return banked, nil
}

// BankedPoints returns a user's banked balance, or 0 for an unknown user.
// Unregistered identities (including anonymous) legitimately have no row.
func (r *UserRepository) BankedPoints(ctx context.Context, username string) (int64, error) {
	const query = `SELECT COALESCE((SELECT banked_points FROM users WHERE username = $1), 0)`

	var banked int64
	err := r.db.QueryRow(ctx, query, username).Scan(&banked)
	if err != nil {
		return 0, fmt.Errorf("failed to get banked points: %w", err)
	}

	return banked, nil
}

// ListUsernames returns every registered username in ascending order.
func (r *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	const query = `SELECT username FROM users ORDER BY username ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		usernames = append(usernames, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usernames: %w", err)
	}

	return usernames, nil
}
