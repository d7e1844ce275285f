package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"gamification-api/internal/model"
	"gamification-api/internal/pkg/lock"
	"gamification-api/internal/repository"
)

// Achievement errors.
var (
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrAlreadyUnlocked     = errors.New("achievement already unlocked")
	ErrUnlockNotFound      = errors.New("unlock not found")
	ErrInvalidRarity       = errors.New("invalid rarity")
)

// celebrationLimit bounds the celebration feed.
const celebrationLimit = 20

// AchievementState is an achievement with the requesting user's unlock
// status.
type AchievementState struct {
	Achievement *model.Achievement `json:"achievement"`
	Unlocked    bool               `json:"unlocked"`
}

// Progress summarizes a user's standing across the achievement set.
type Progress struct {
	Unlocked int                `json:"unlocked"`
	Total    int                `json:"total"`
	Points   int64              `json:"points"`
	Unlocks  []AchievementState `json:"achievements"`
}

// AchievementService handles the achievement catalogue, unlocks and the
// celebration feed. The per-identity lock serializes unlock attempts so the
// duplicate check cannot be raced from concurrent requests.
type AchievementService struct {
	pool         *pgxpool.Pool
	achievements *repository.AchievementRepository
	points       *PointsService
	locks        *lock.IdentityLock
	logger       zerolog.Logger
}

// NewAchievementService creates a new AchievementService instance.
func NewAchievementService(
	pool *pgxpool.Pool,
	achievements *repository.AchievementRepository,
	points *PointsService,
	logger zerolog.Logger,
) *AchievementService {
	return &AchievementService{
		pool:         pool,
		achievements: achievements,
		points:       points,
		locks:        lock.NewIdentityLock(),
		logger:       logger,
	}
}

// List returns the visible achievements with the user's unlock state.
func (s *AchievementService) List(ctx context.Context, userID string) ([]AchievementState, error) {
	achievements, err := s.achievements.ListVisible(ctx)
	if err != nil {
		return nil, err
	}

	unlocks, err := s.achievements.ListUnlocks(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[int64]bool, len(unlocks))
	for _, ua := range unlocks {
		unlocked[ua.AchievementID] = true
	}

	states := make([]AchievementState, 0, len(achievements))
	for _, a := range achievements {
		states = append(states, AchievementState{Achievement: a, Unlocked: unlocked[a.ID]})
	}

	return states, nil
}

// Create adds an achievement to the catalogue.
func (s *AchievementService) Create(ctx context.Context, name string, description *string, rarity string) (*model.Achievement, error) {
	if rarity == "" {
		rarity = model.RarityCommon
	}
	switch rarity {
	case model.RarityCommon, model.RarityRare, model.RarityEpic, model.RarityLegendary:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRarity, rarity)
	}

	achievement, err := s.achievements.Create(ctx, name, description, rarity)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("name", name).Str("rarity", rarity).Msg("Achievement created")

	return achievement, nil
}

// Unlock records an unlock for the user and appends a celebration notice.
// A second unlock of the same achievement is rejected.
func (s *AchievementService) Unlock(ctx context.Context, userID string, achievementID int64) (*model.Achievement, error) {
	var achievement *model.Achievement
	err := s.locks.WithLock(userID, func() error {
		var err error
		achievement, err = s.unlock(ctx, userID, achievementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return achievement, nil
}

func (s *AchievementService) unlock(ctx context.Context, userID string, achievementID int64) (*model.Achievement, error) {
	achievement, err := s.achievements.GetByID(ctx, achievementID)
	if err != nil {
		if errors.Is(err, repository.ErrAchievementNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, err
	}
	if achievement.Deleted {
		return nil, ErrAchievementNotFound
	}

	unlocked, err := s.achievements.HasUnlock(ctx, userID, achievementID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return nil, ErrAlreadyUnlocked
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	achievements := s.achievements.WithTx(tx)
	if _, err := achievements.Unlock(ctx, userID, achievementID); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("%s unlocked %s!", userID, achievement.Name)
	if err := achievements.CreateCelebration(ctx, userID, achievement.Name, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int64("achievement_id", achievementID).
		Str("rarity", achievement.Rarity).
		Msg("Achievement unlocked")

	return achievement, nil
}

// Lock removes the user's own unlock of an achievement.
func (s *AchievementService) Lock(ctx context.Context, userID string, achievementID int64) error {
	err := s.achievements.RemoveUnlockByUser(ctx, userID, achievementID)
	if errors.Is(err, repository.ErrUnlockNotFound) {
		return ErrUnlockNotFound
	}
	return err
}

// MyProgress summarizes the user's unlock count and achievement points.
func (s *AchievementService) MyProgress(ctx context.Context, userID string) (*Progress, error) {
	states, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	points, err := s.points.AchievementPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := 0
	for _, st := range states {
		if st.Unlocked {
			unlocked++
		}
	}

	return &Progress{
		Unlocked: unlocked,
		Total:    len(states),
		Points:   points,
		Unlocks:  states,
	}, nil
}

// Remove soft-deletes an achievement. Historical unlocks keep contributing
// points.
func (s *AchievementService) Remove(ctx context.Context, achievementID int64) error {
	err := s.achievements.SoftDelete(ctx, achievementID)
	if errors.Is(err, repository.ErrAchievementNotFound) {
		return ErrAchievementNotFound
	}
	return err
}

// RemoveUnlock deletes an unlock row by id.
func (s *AchievementService) RemoveUnlock(ctx context.Context, unlockID int64) error {
	err := s.achievements.RemoveUnlockByID(ctx, unlockID)
	if errors.Is(err, repository.ErrUnlockNotFound) {
		return ErrUnlockNotFound
	}
	return err
}

// Celebrations returns the most recent celebration notices.
func (s *AchievementService) Celebrations(ctx context.Context) ([]*model.Celebration, error) {
	return s.achievements.RecentCelebrations(ctx, celebrationLimit)
}
