// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAchievementNotFound   = errors.New("achievement not found")
	ErrCompetitionNotFound   = errors.New("competition not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrMembershipNotFound    = errors.New("membership not found")
	ErrRewardNotFound        = errors.New("reward not found")
	ErrEntryNotFound         = errors.New("entry not found")
	ErrUnlockNotFound        = errors.New("unlock not found")
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx. Repositories
// are constructed over a pool and rebound to a transaction with WithTx so a
// multi-table unit of work commits or rolls back as one.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
