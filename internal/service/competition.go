package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"gamification-api/internal/model"
	"gamification-api/internal/repository"
)

// Competition-related errors.
var (
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrNotJoined           = errors.New("not a member of this competition")
	ErrInvalidDelta        = errors.New("invalid delta: must be an integer")
)

// Participant is one entry in a competition's participant list. Users
// joined through both membership paths appear once per source.
type Participant struct {
	UserID   string `json:"user_id"`
	Progress int64  `json:"progress"`
}

// CompetitionService handles the competition lifecycle: both join paths,
// progress updates and the banking that runs when participations are
// removed.
type CompetitionService struct {
	pool         *pgxpool.Pool
	competitions *repository.CompetitionRepository
	users        *repository.UserRepository
	logger       zerolog.Logger
}

// NewCompetitionService creates a new CompetitionService instance.
func NewCompetitionService(
	pool *pgxpool.Pool,
	competitions *repository.CompetitionRepository,
	users *repository.UserRepository,
	logger zerolog.Logger,
) *CompetitionService {
	return &CompetitionService{
		pool:         pool,
		competitions: competitions,
		users:        users,
		logger:       logger,
	}
}

// Create adds a new competition.
func (s *CompetitionService) Create(ctx context.Context, title string, description *string, active bool) (*model.Competition, error) {
	return s.competitions.Create(ctx, title, description, nil, nil, active)
}

// List returns all competitions.
func (s *CompetitionService) List(ctx context.Context) ([]*model.Competition, error) {
	return s.competitions.List(ctx)
}

// ListActive returns competitions open for joining.
func (s *CompetitionService) ListActive(ctx context.Context) ([]*model.Competition, error) {
	return s.competitions.ListActive(ctx)
}

// Participants returns a competition's participant list, merging both
// membership sources. Simple memberships carry progress 0 and are not
// deduplicated against participations.
func (s *CompetitionService) Participants(ctx context.Context, competitionID int64) ([]Participant, error) {
	participations, err := s.competitions.ListParticipants(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.competitions.ListMembers(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	participants := make([]Participant, 0, len(participations)+len(memberships))
	for _, p := range participations {
		participants = append(participants, Participant{UserID: p.UserID, Progress: p.Progress})
	}
	for _, m := range memberships {
		participants = append(participants, Participant{UserID: m.UserID, Progress: 0})
	}

	return participants, nil
}

// JoinProgress joins a competition through the progress-tracked path.
// Joining twice returns the existing participation; created reports whether
// this call inserted the row.
func (s *CompetitionService) JoinProgress(ctx context.Context, userID string, competitionID int64) (*model.Participation, bool, error) {
	if _, err := s.competitions.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, repository.ErrCompetitionNotFound) {
			return nil, false, ErrCompetitionNotFound
		}
		return nil, false, err
	}

	created, err := s.competitions.Join(ctx, userID, competitionID)
	if err != nil {
		return nil, false, err
	}

	participation, err := s.competitions.GetParticipation(ctx, userID, competitionID)
	if err != nil {
		return nil, false, err
	}

	return participation, created, nil
}

// JoinSimple joins a competition through the simple-membership path.
// Every call inserts a new membership row, duplicates included.
func (s *CompetitionService) JoinSimple(ctx context.Context, userID string, competitionID int64) (*model.Competition, error) {
	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repository.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}

	if _, err := s.competitions.AddMember(ctx, userID, competitionID); err != nil {
		return nil, err
	}

	return competition, nil
}

// JoinNamed joins the competition with the given title through the simple
// path, creating the competition if it does not exist yet.
func (s *CompetitionService) JoinNamed(ctx context.Context, userID, title string) (*model.Competition, error) {
	competition, err := s.competitions.GetByTitle(ctx, title)
	if err != nil {
		if !errors.Is(err, repository.ErrCompetitionNotFound) {
			return nil, err
		}
		competition, err = s.competitions.Create(ctx, title, nil, nil, nil, true)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.competitions.AddMember(ctx, userID, competition.ID); err != nil {
		return nil, err
	}

	return competition, nil
}

// MyCompetitions returns the competitions a user belongs to through either
// path. A user joined through both paths, or holding duplicate memberships,
// gets one entry per row.
func (s *CompetitionService) MyCompetitions(ctx context.Context, userID string) ([]*model.Competition, error) {
	participations, err := s.competitions.ListParticipations(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.competitions.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result []*model.Competition
	for _, p := range participations {
		competition, err := s.competitions.GetByID(ctx, p.CompetitionID)
		if err != nil {
			return nil, err
		}
		result = append(result, competition)
	}
	for _, m := range memberships {
		competition, err := s.competitions.GetByID(ctx, m.CompetitionID)
		if err != nil {
			return nil, err
		}
		result = append(result, competition)
	}

	return result, nil
}

// UpdateProgress applies a delta to the user's progress in a competition.
// ref resolves to an id when it is a digit string, otherwise to a title.
// Progress has no floor; negative results are stored as-is.
func (s *CompetitionService) UpdateProgress(ctx context.Context, userID, ref string, delta int64) (int64, error) {
	competition, err := s.resolve(ctx, ref)
	if err != nil {
		return 0, err
	}

	progress, err := s.competitions.AddProgress(ctx, userID, competition.ID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrNotJoined, ref)
		}
		return 0, err
	}

	return progress, nil
}

func (s *CompetitionService) resolve(ctx context.Context, ref string) (*model.Competition, error) {
	var competition *model.Competition
	var err error

	if id, convErr := strconv.ParseInt(strings.TrimSpace(ref), 10, 64); convErr == nil {
		competition, err = s.competitions.GetByID(ctx, id)
	} else {
		competition, err = s.competitions.GetByTitle(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, repository.ErrCompetitionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCompetitionNotFound, ref)
		}
		return nil, err
	}

	return competition, nil
}

// Leave removes the user's participation in a competition, banking any
// positive progress atomically with the delete. Simple memberships are not
// touched; a user holding only a simple membership gets ErrNotJoined.
func (s *CompetitionService) Leave(ctx context.Context, userID string, competitionID int64) error {
	err := s.removeParticipationTx(ctx, userID, competitionID)
	if errors.Is(err, repository.ErrParticipationNotFound) {
		return ErrNotJoined
	}
	return err
}

// LeaveAny removes the user from a competition through whichever paths
// they joined. A participation is banked and deleted atomically; the
// oldest simple membership row, if any, is deleted. Reports ErrNotJoined
// when the user held neither.
func (s *CompetitionService) LeaveAny(ctx context.Context, userID string, competitionID int64) error {
	left := false

	err := s.removeParticipationTx(ctx, userID, competitionID)
	switch {
	case err == nil:
		left = true
	case errors.Is(err, repository.ErrParticipationNotFound):
	default:
		return err
	}

	err = s.competitions.RemoveOldestMembership(ctx, userID, competitionID)
	switch {
	case err == nil:
		left = true
	case errors.Is(err, repository.ErrMembershipNotFound):
	default:
		return err
	}

	if !left {
		return ErrNotJoined
	}

	return nil
}

// RemoveParticipationByID banks and deletes a single participation
// addressed by its id.
func (s *CompetitionService) RemoveParticipationByID(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	competitions := s.competitions.WithTx(tx)

	participation, err := competitions.GetParticipationByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return fmt.Errorf("%w: participation %d", ErrNotJoined, id)
		}
		return err
	}

	if err := s.bankProgress(ctx, tx, participation); err != nil {
		return err
	}

	if err := competitions.DeleteParticipationByID(ctx, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *CompetitionService) removeParticipationTx(ctx context.Context, userID string, competitionID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	competitions := s.competitions.WithTx(tx)

	participation, err := competitions.GetParticipationForUpdate(ctx, userID, competitionID)
	if err != nil {
		return err
	}

	if err := s.bankProgress(ctx, tx, participation); err != nil {
		return err
	}

	if err := competitions.DeleteParticipation(ctx, userID, competitionID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RemoveCompetition banks every participant's progress, then deletes the
// competition and its child rows, all in one transaction.
func (s *CompetitionService) RemoveCompetition(ctx context.Context, competitionID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	competitions := s.competitions.WithTx(tx)

	if _, err := competitions.GetByID(ctx, competitionID); err != nil {
		if errors.Is(err, repository.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return err
	}

	participations, err := competitions.ListParticipantsForUpdate(ctx, competitionID)
	if err != nil {
		return err
	}

	for _, p := range participations {
		if err := s.bankProgress(ctx, tx, p); err != nil {
			return err
		}
		if err := competitions.DeleteParticipation(ctx, p.UserID, competitionID); err != nil {
			return err
		}
	}

	if err := competitions.DeleteMembershipsByCompetition(ctx, competitionID); err != nil {
		return err
	}

	if err := competitions.Delete(ctx, competitionID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// bankProgress credits a participation's positive progress to the user's
// banked balance. When the user cannot be resolved the progress is dropped
// and the loss is logged as a data-integrity event; the caller's operation
// continues.
func (s *CompetitionService) bankProgress(ctx context.Context, tx pgx.Tx, p *model.Participation) error {
	if p.Progress <= 0 {
		return nil
	}

	_, err := s.users.WithTx(tx).AddBankedPoints(ctx, p.UserID, p.Progress)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn().
				Str("event", "lost_points").
				Str("user_id", p.UserID).
				Int64("competition_id", p.CompetitionID).
				Int64("progress", p.Progress).
				Msg("Banking skipped: user not resolvable, progress dropped")
			return nil
		}
		return fmt.Errorf("failed to bank progress: %w", err)
	}

	return nil
}
