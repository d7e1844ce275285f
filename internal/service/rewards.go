package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"gamification-api/internal/model"
	"gamification-api/internal/repository"
)

// Reward and donation errors.
var (
	ErrRewardNotFound     = errors.New("reward not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("invalid amount: must be positive")
	ErrRecipientUnknown   = errors.New("recipient not found")
)

// RewardService handles the reward catalogue, redemptions and donations.
// Every balance-decreasing operation checks and spends inside one
// serializable transaction so concurrent requests cannot race past the
// balance check.
type RewardService struct {
	pool   *pgxpool.Pool
	ledger *repository.LedgerRepository
	points *PointsService
	logger zerolog.Logger
}

// NewRewardService creates a new RewardService instance.
func NewRewardService(
	pool *pgxpool.Pool,
	ledger *repository.LedgerRepository,
	points *PointsService,
	logger zerolog.Logger,
) *RewardService {
	return &RewardService{
		pool:   pool,
		ledger: ledger,
		points: points,
		logger: logger,
	}
}

// ListRewards returns the catalogue, cheapest first.
func (s *RewardService) ListRewards(ctx context.Context) ([]*model.Reward, error) {
	return s.ledger.ListRewards(ctx)
}

// AddReward adds a reward to the catalogue.
func (s *RewardService) AddReward(ctx context.Context, name string, description *string, points int64) (*model.Reward, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.ledger.CreateReward(ctx, name, description, points)
}

// RemoveReward deletes a reward from the catalogue.
func (s *RewardService) RemoveReward(ctx context.Context, id int64) error {
	err := s.ledger.DeleteReward(ctx, id)
	if errors.Is(err, repository.ErrRewardNotFound) {
		return ErrRewardNotFound
	}
	return err
}

// MyPoints returns the user's balance breakdown on the global board.
func (s *RewardService) MyPoints(ctx context.Context, userID string) (*model.PointsBreakdown, error) {
	return s.points.Breakdown(ctx, userID, model.BoardGlobal)
}

// Redeem spends the reward's cost from the user's balance and returns the
// remaining available points.
func (s *RewardService) Redeem(ctx context.Context, userID string, rewardID int64) (int64, error) {
	var remaining int64

	err := s.serializable(ctx, func(tx pgx.Tx) error {
		ledger := s.ledger.WithTx(tx)

		reward, err := ledger.GetReward(ctx, rewardID)
		if err != nil {
			if errors.Is(err, repository.ErrRewardNotFound) {
				return ErrRewardNotFound
			}
			return err
		}

		breakdown, err := s.points.WithTx(tx).Breakdown(ctx, userID, model.BoardGlobal)
		if err != nil {
			return err
		}

		if breakdown.Available < reward.Points {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, breakdown.Available, reward.Points)
		}

		_, err = ledger.RecordRedemption(ctx, userID, reward.ID, reward.Points)
		if err != nil {
			return err
		}

		remaining = breakdown.Available - reward.Points
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int64("reward_id", rewardID).
		Int64("remaining", remaining).
		Msg("Reward redeemed")

	return remaining, nil
}

// Donate moves amount from the donor's balance to the recipient through
// paired manual entries on the global board. The recipient must already be
// known to the system through any identity source.
func (s *RewardService) Donate(ctx context.Context, donorID, recipientID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var remaining int64

	err := s.serializable(ctx, func(tx pgx.Tx) error {
		ledger := s.ledger.WithTx(tx)

		known, err := ledger.UserKnown(ctx, recipientID)
		if err != nil {
			return err
		}
		if !known {
			return fmt.Errorf("%w: %s", ErrRecipientUnknown, recipientID)
		}

		breakdown, err := s.points.WithTx(tx).Breakdown(ctx, donorID, model.BoardGlobal)
		if err != nil {
			return err
		}

		if breakdown.Available < amount {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, breakdown.Available, amount)
		}

		if _, err := ledger.AddManualPoints(ctx, donorID, model.BoardGlobal, -amount); err != nil {
			return err
		}
		if _, err := ledger.AddManualPoints(ctx, recipientID, model.BoardGlobal, amount); err != nil {
			return err
		}

		remaining = breakdown.Available - amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("donor", donorID).
		Str("recipient", recipientID).
		Int64("amount", amount).
		Msg("Points donated")

	return remaining, nil
}

// serializable runs fn inside a serializable transaction with rollback on
// any error.
func (s *RewardService) serializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
