// Package model defines the data models for the gamification backend.
package model

import "time"

// User represents a registered account. BankedPoints is the permanent,
// competition-independent balance credited when progress is banked.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	BankedPoints int64     `db:"banked_points"`
	CreatedAt    time.Time `db:"created_at"`
}

// Achievement is a named unlockable with a rarity tier. Deletion is soft:
// the row is flagged and renamed so the unique name is freed while
// historical unlocks keep resolving.
type Achievement struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Rarity      string    `db:"rarity"`
	Deleted     bool      `db:"deleted"`
	CreatedAt   time.Time `db:"created_at"`
}

// UserAchievement records a user's unlock of an achievement.
type UserAchievement struct {
	ID            int64     `db:"id"`
	UserID        string    `db:"user_id"`
	AchievementID int64     `db:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

// Competition is a joinable challenge with an optional time window.
type Competition struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	StartAt     *time.Time `db:"start_at"`
	EndAt       *time.Time `db:"end_at"`
	Active      bool       `db:"active"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Participation is progress-tracked membership: one row per
// (user, competition), progress bankable on exit.
type Participation struct {
	ID            int64     `db:"id"`
	UserID        string    `db:"user_id"`
	CompetitionID int64     `db:"competition_id"`
	Progress      int64     `db:"progress"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Membership is simple membership without progress tracking.
// Duplicate rows for the same (user, competition) are allowed.
type Membership struct {
	ID            int64     `db:"id"`
	UserID        string    `db:"user_id"`
	CompetitionID int64     `db:"competition_id"`
	JoinedAt      time.Time `db:"joined_at"`
}

// ManualEntry is an adjustable ledger entry scoped to a leaderboard board,
// used for donations and administrative point grants. At most one row per
// (user, board).
type ManualEntry struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Board     string    `db:"board"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

// Reward is a redeemable item with a point cost.
type Reward struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Points      int64     `db:"points"`
	CreatedAt   time.Time `db:"created_at"`
}

// Redemption is an append-only record of points spent on a reward.
type Redemption struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	RewardID  int64     `db:"reward_id"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

// Celebration is a notice created when a user unlocks an achievement.
type Celebration struct {
	ID              int64     `db:"id"`
	UserID          string    `db:"user_id"`
	AchievementName string    `db:"achievement_name"`
	Message         string    `db:"message"`
	CreatedAt       time.Time `db:"created_at"`
}

// TeamMember records a user's team affiliation. It scopes the population
// of the team leaderboard.
type TeamMember struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	TeamName  string    `db:"team_name"`
	CreatedAt time.Time `db:"created_at"`
}

// Leaderboard board tags partitioning manual point entries and rankings.
const (
	BoardGlobal     = "global"
	BoardTeam       = "team"
	BoardMonthly    = "monthly"
	BoardHallOfFame = "hall_of_fame"
)

// ValidBoard reports whether tag names a known leaderboard board.
func ValidBoard(tag string) bool {
	switch tag {
	case BoardGlobal, BoardTeam, BoardMonthly, BoardHallOfFame:
		return true
	}
	return false
}

// Achievement rarity tiers.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// RarityPoints maps an achievement rarity to its point value.
// Unrecognized rarities score as common.
func RarityPoints(rarity string) int64 {
	switch rarity {
	case RarityCommon:
		return 10
	case RarityRare:
		return 20
	case RarityEpic:
		return 40
	case RarityLegendary:
		return 80
	default:
		return 10
	}
}

// PointsBreakdown is the per-source decomposition of a user's balance.
// Available is floored at zero; the raw sum is preserved in Total.
type PointsBreakdown struct {
	AchievementPoints int64 `json:"achievement_points"`
	ProgressPoints    int64 `json:"game_points"`
	ManualPoints      int64 `json:"manual_points"`
	BankedPoints      int64 `json:"banked_points"`
	SpentPoints       int64 `json:"spent_points"`
	Available         int64 `json:"available_points"`
}

// Total returns the unfloored sum of all earning sources minus spend.
func (b PointsBreakdown) Total() int64 {
	return b.AchievementPoints + b.ProgressPoints + b.ManualPoints + b.BankedPoints - b.SpentPoints
}
