package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"gamification-api/internal/auth"
	"gamification-api/internal/model"
	"gamification-api/internal/repository"
)

// Account errors.
var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// uniqueViolation is the postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// AccountService handles registration and login.
type AccountService struct {
	users  *repository.UserRepository
	jwt    *auth.JWTService
	logger zerolog.Logger
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(users *repository.UserRepository, jwt *auth.JWTService, logger zerolog.Logger) *AccountService {
	return &AccountService{
		users:  users,
		jwt:    jwt,
		logger: logger,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("User registered")

	return user, nil
}

// Login verifies credentials and issues a JWT. Unknown usernames and wrong
// passwords report the same error.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}
