// Package main is the entry point for the gamification API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gamification-api/internal/auth"
	"gamification-api/internal/config"
	"gamification-api/internal/handler"
	"gamification-api/internal/middleware"
	"gamification-api/internal/pkg/db"
	"gamification-api/internal/repository"
	"gamification-api/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("auth.secret must be configured")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	achievementRepo := repository.NewAchievementRepository(dbPool.Pool)
	competitionRepo := repository.NewCompetitionRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	teamRepo := repository.NewTeamRepository(dbPool.Pool)

	// Initialize services
	jwtService := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	pointsService := service.NewPointsService(userRepo, achievementRepo, competitionRepo, ledgerRepo)
	accountService := service.NewAccountService(userRepo, jwtService, log.Logger)
	achievementService := service.NewAchievementService(dbPool.Pool, achievementRepo, pointsService, log.Logger)
	competitionService := service.NewCompetitionService(dbPool.Pool, competitionRepo, userRepo, log.Logger)
	rewardService := service.NewRewardService(dbPool.Pool, ledgerRepo, pointsService, log.Logger)
	leaderboardService := service.NewLeaderboardService(
		dbPool.Pool, userRepo, achievementRepo, competitionRepo, ledgerRepo, teamRepo, pointsService, log.Logger,
	)

	// Initialize HTTP surface
	h := handler.New(
		accountService,
		achievementService,
		competitionService,
		rewardService,
		leaderboardService,
		dbPool,
		log.Logger,
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(log.Logger))
	engine.Use(middleware.OptionalAuth(jwtService, cfg.Identity.AnonymousUser))
	h.RegisterRoutes(engine)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
