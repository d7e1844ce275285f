package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gamification-api/internal/model"
	"gamification-api/internal/repository"
)

// PointsService computes point totals from the earning and spend sources.
// It is a pure read layer; WithTx rebinds it so balance checks run inside
// the same transaction as the write they gate.
type PointsService struct {
	users        *repository.UserRepository
	achievements *repository.AchievementRepository
	competitions *repository.CompetitionRepository
	ledger       *repository.LedgerRepository
}

// NewPointsService creates a new PointsService instance.
func NewPointsService(
	users *repository.UserRepository,
	achievements *repository.AchievementRepository,
	competitions *repository.CompetitionRepository,
	ledger *repository.LedgerRepository,
) *PointsService {
	return &PointsService{
		users:        users,
		achievements: achievements,
		competitions: competitions,
		ledger:       ledger,
	}
}

// WithTx returns a copy of the service bound to the given transaction.
func (s *PointsService) WithTx(tx pgx.Tx) *PointsService {
	return &PointsService{
		users:        s.users.WithTx(tx),
		achievements: s.achievements.WithTx(tx),
		competitions: s.competitions.WithTx(tx),
		ledger:       s.ledger.WithTx(tx),
	}
}

// AchievementPoints sums the rarity values of a user's unlocked
// achievements. Duplicate unlock rows for the same achievement count once;
// unlocks whose achievement row is gone are skipped.
func (s *PointsService) AchievementPoints(ctx context.Context, userID string) (int64, error) {
	unlocks, err := s.achievements.ListUnlocks(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load unlocks: %w", err)
	}

	seen := make(map[int64]bool, len(unlocks))
	var total int64
	for _, ua := range unlocks {
		if seen[ua.AchievementID] {
			continue
		}
		seen[ua.AchievementID] = true

		achievement, err := s.achievements.GetByID(ctx, ua.AchievementID)
		if err != nil {
			if errors.Is(err, repository.ErrAchievementNotFound) {
				continue
			}
			return 0, fmt.Errorf("failed to resolve achievement: %w", err)
		}

		total += model.RarityPoints(achievement.Rarity)
	}

	return total, nil
}

// Breakdown aggregates a user's balance on a board:
// achievement + progress + manual + banked - spent, with the available
// figure floored at zero.
func (s *PointsService) Breakdown(ctx context.Context, userID, board string) (*model.PointsBreakdown, error) {
	achievementPoints, err := s.AchievementPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	progressPoints, err := s.competitions.SumProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	manualPoints, err := s.ledger.ManualPoints(ctx, userID, board)
	if err != nil {
		return nil, err
	}

	bankedPoints, err := s.users.BankedPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	spentPoints, err := s.ledger.SpentPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	b := &model.PointsBreakdown{
		AchievementPoints: achievementPoints,
		ProgressPoints:    progressPoints,
		ManualPoints:      manualPoints,
		BankedPoints:      bankedPoints,
		SpentPoints:       spentPoints,
	}
	b.Available = b.Total()
	if b.Available < 0 {
		b.Available = 0
	}

	return b, nil
}
