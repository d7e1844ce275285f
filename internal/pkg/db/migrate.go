package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations is the ordered list of schema statements. Each entry is applied
// with IF NOT EXISTS guards so re-running on startup is safe.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				username VARCHAR(120) NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				banked_points BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "achievements",
		sql: `
			CREATE TABLE IF NOT EXISTS achievements (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(150) NOT NULL UNIQUE,
				description TEXT,
				rarity VARCHAR(20) NOT NULL DEFAULT 'common',
				deleted BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		// No uniqueness constraint: historical data may contain duplicate
		// unlock rows. Duplicates are rejected on create and deduplicated
		// when computing totals.
		name: "user_achievements",
		sql: `
			CREATE TABLE IF NOT EXISTS user_achievements (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				achievement_id BIGINT NOT NULL REFERENCES achievements(id),
				unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id);
		`,
	},
	{
		name: "competitions",
		sql: `
			CREATE TABLE IF NOT EXISTS competitions (
				id BIGSERIAL PRIMARY KEY,
				title VARCHAR(200) NOT NULL,
				description TEXT,
				start_at TIMESTAMPTZ,
				end_at TIMESTAMPTZ,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		// The unique index makes progress joins idempotent at the store
		// level instead of relying on a check-then-insert.
		name: "participations",
		sql: `
			CREATE TABLE IF NOT EXISTS participations (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				competition_id BIGINT NOT NULL REFERENCES competitions(id),
				progress BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, competition_id)
			);
			CREATE INDEX IF NOT EXISTS idx_participations_competition ON participations(competition_id);
		`,
	},
	{
		// Duplicate (user, competition) rows are allowed here: simple
		// membership has no uniqueness semantics.
		name: "memberships",
		sql: `
			CREATE TABLE IF NOT EXISTS memberships (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				competition_id BIGINT NOT NULL REFERENCES competitions(id),
				joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_memberships_competition ON memberships(competition_id);
			CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);
		`,
	},
	{
		name: "manual_entries",
		sql: `
			CREATE TABLE IF NOT EXISTS manual_entries (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				board VARCHAR(50) NOT NULL DEFAULT 'global',
				points BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, board)
			);
		`,
	},
	{
		name: "rewards",
		sql: `
			CREATE TABLE IF NOT EXISTS rewards (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(150) NOT NULL,
				description TEXT,
				points BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "redemptions",
		sql: `
			CREATE TABLE IF NOT EXISTS redemptions (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				reward_id BIGINT NOT NULL,
				points BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_redemptions_user ON redemptions(user_id);
		`,
	},
	{
		name: "celebrations",
		sql: `
			CREATE TABLE IF NOT EXISTS celebrations (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL,
				achievement_name VARCHAR(150) NOT NULL,
				message VARCHAR(500) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "team_members",
		sql: `
			CREATE TABLE IF NOT EXISTS team_members (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(120) NOT NULL UNIQUE,
				team_name VARCHAR(150) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
}

// Migrate applies the database schema. It is called from main on startup and
// from integration tests against throwaway containers.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		log.Debug().Str("migration", m.name).Msg("Migration applied")
	}
	log.Info().Int("count", len(migrations)).Msg("All migrations completed")
	return nil
}
