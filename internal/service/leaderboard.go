package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"gamification-api/internal/model"
	"gamification-api/internal/repository"
)

// Leaderboard errors.
var (
	ErrInvalidBoard  = errors.New("invalid board")
	ErrEntryNotFound = errors.New("leaderboard entry not found")
)

// Entry is one ranked row of a leaderboard. ID is the removal handle
// clients pass back to DELETE the entry.
type Entry struct {
	ID     string `json:"id"`
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// entryID builds the removal handle for a user's board entry. Spaces in
// the identifier are folded to underscores; removalTarget reverses the
// mapping.
func entryID(userID string) string {
	return "user_" + strings.ReplaceAll(userID, " ", "_")
}

// removalTarget parses a removal handle. Handles with the "user_" prefix
// address a whole user, with underscores standing in for spaces.
func removalTarget(id string) (string, bool) {
	if username, ok := strings.CutPrefix(id, "user_"); ok {
		return strings.ReplaceAll(username, "_", " "), true
	}
	return id, false
}

// LeaderboardService computes board rankings and manages manual entries.
type LeaderboardService struct {
	pool         *pgxpool.Pool
	users        *repository.UserRepository
	achievements *repository.AchievementRepository
	competitions *repository.CompetitionRepository
	ledger       *repository.LedgerRepository
	team         *repository.TeamRepository
	points       *PointsService
	logger       zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(
	pool *pgxpool.Pool,
	users *repository.UserRepository,
	achievements *repository.AchievementRepository,
	competitions *repository.CompetitionRepository,
	ledger *repository.LedgerRepository,
	team *repository.TeamRepository,
	points *PointsService,
	logger zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		pool:         pool,
		users:        users,
		achievements: achievements,
		competitions: competitions,
		ledger:       ledger,
		team:         team,
		points:       points,
		logger:       logger,
	}
}

// Board ranks the board's population by available points, descending, with
// ties broken by user identifier ascending.
func (s *LeaderboardService) Board(ctx context.Context, board string) ([]Entry, error) {
	if !model.ValidBoard(board) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBoard, board)
	}

	population, err := s.population(ctx, board)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(population))
	for _, userID := range population {
		breakdown, err := s.points.Breakdown(ctx, userID, board)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: entryID(userID), UserID: userID, Points: breakdown.Available})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}

// population collects the board's user set. The team board is restricted to
// the team roster; the other boards rank every user any points source
// knows about.
func (s *LeaderboardService) population(ctx context.Context, board string) ([]string, error) {
	if board == model.BoardTeam {
		return s.team.UserIDs(ctx)
	}

	seen := make(map[string]bool)
	var population []string
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				population = append(population, id)
			}
		}
	}

	registered, err := s.users.ListUsernames(ctx)
	if err != nil {
		return nil, err
	}
	add(registered)

	unlocked, err := s.achievements.DistinctUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	add(unlocked)

	participants, err := s.competitions.DistinctParticipantIDs(ctx)
	if err != nil {
		return nil, err
	}
	add(participants)

	manual, err := s.ledger.DistinctManualUserIDs(ctx, board)
	if err != nil {
		return nil, err
	}
	add(manual)

	sort.Strings(population)
	return population, nil
}

// Add sets a user's manual entry on a board to the given points,
// overwriting any existing value. Returns whether a new entry was created.
func (s *LeaderboardService) Add(ctx context.Context, userID, board string, points int64) (bool, error) {
	if !model.ValidBoard(board) {
		return false, fmt.Errorf("%w: %s", ErrInvalidBoard, board)
	}

	created, err := s.ledger.SetManualPoints(ctx, userID, board, points)
	if err != nil {
		return false, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("board", board).
		Int64("points", points).
		Bool("created", created).
		Msg("Manual points set")

	return created, nil
}

// Remove deletes leaderboard state for a target. A plain target deletes the
// user's manual entries. A target prefixed with "user_" removes the named
// user entirely from the boards: outstanding participation progress is
// banked first, then participations and manual entries are deleted in one
// transaction.
func (s *LeaderboardService) Remove(ctx context.Context, id string) error {
	target, isUser := removalTarget(id)
	if isUser {
		return s.removeUser(ctx, target)
	}

	deleted, err := s.ledger.DeleteManualEntries(ctx, target)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, target)
	}

	return nil
}

func (s *LeaderboardService) removeUser(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	competitions := s.competitions.WithTx(tx)
	users := s.users.WithTx(tx)

	participations, err := competitions.ListParticipationsForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	removed := false
	for _, p := range participations {
		if p.Progress > 0 {
			if _, err := users.AddBankedPoints(ctx, userID, p.Progress); err != nil {
				if !errors.Is(err, repository.ErrUserNotFound) {
					return err
				}
				s.logger.Warn().
					Str("event", "lost_points").
					Str("user_id", userID).
					Int64("competition_id", p.CompetitionID).
					Int64("progress", p.Progress).
					Msg("Banking skipped: user not resolvable, progress dropped")
			}
		}
		if err := competitions.DeleteParticipation(ctx, userID, p.CompetitionID); err != nil {
			return err
		}
		removed = true
	}

	deleted, err := s.ledger.WithTx(tx).DeleteManualEntries(ctx, userID)
	if err != nil {
		return err
	}
	if deleted > 0 {
		removed = true
	}

	if !removed {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, userID)
	}

	return tx.Commit(ctx)
}
