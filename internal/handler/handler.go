package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gamification-api/internal/pkg/db"
	"gamification-api/internal/service"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	accounts     *service.AccountService
	achievements *service.AchievementService
	competitions *service.CompetitionService
	rewards      *service.RewardService
	leaderboards *service.LeaderboardService
	pool         *db.Pool
	logger       zerolog.Logger
}

// New creates a new Handler instance.
func New(
	accounts *service.AccountService,
	achievements *service.AchievementService,
	competitions *service.CompetitionService,
	rewards *service.RewardService,
	leaderboards *service.LeaderboardService,
	pool *db.Pool,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		accounts:     accounts,
		achievements: achievements,
		competitions: competitions,
		rewards:      rewards,
		leaderboards: leaderboards,
		pool:         pool,
		logger:       logger,
	}
}

// RegisterRoutes attaches every route to the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	games := r.Group("/games")
	{
		games.GET("/active", h.ActiveGames)
		games.POST("/create", h.CreateGame)
		games.POST("/join", h.JoinGame)
		games.PUT("/progress/update", h.UpdateProgress)
		games.DELETE("/leave", h.LeaveGame)
		games.DELETE("/competition/remove", h.RemoveCompetition)
		games.DELETE("/participation/remove", h.RemoveParticipation)
	}

	competitions := r.Group("/competitions")
	{
		competitions.GET("/all", h.AllCompetitions)
		competitions.GET("/my-competitions", h.MyCompetitions)
		competitions.POST("/join", h.JoinCompetition)
		competitions.DELETE("/leave", h.LeaveCompetition)
		for _, name := range namedCompetitions {
			competitions.POST("/"+name, h.joinNamed(name))
		}
	}

	achievements := r.Group("/achievements")
	{
		achievements.GET("/available", h.AvailableAchievements)
		achievements.POST("/unlock", h.UnlockAchievement)
		achievements.POST("/lock", h.LockAchievement)
		achievements.GET("/my-progress", h.MyAchievementProgress)
		achievements.POST("/create-custom", h.CreateAchievement)
		achievements.GET("/celebrations", h.Celebrations)
		achievements.DELETE("/achievement/remove", h.RemoveAchievement)
		achievements.DELETE("/user-achievement/remove", h.RemoveUnlock)
	}

	rewards := r.Group("/rewards")
	{
		rewards.GET("/available", h.AvailableRewards)
		rewards.POST("/redeem", h.Redeem)
		rewards.GET("/my-points", h.MyPoints)
		rewards.POST("/donate-points", h.DonatePoints)
		rewards.POST("/add", h.AddReward)
		rewards.DELETE("/remove", h.RemoveReward)
	}

	leaderboards := r.Group("/leaderboards")
	{
		leaderboards.GET("/global", h.boardHandler("global"))
		leaderboards.GET("/team", h.boardHandler("team"))
		leaderboards.GET("/monthly", h.boardHandler("monthly"))
		leaderboards.GET("/hall-of-fame", h.boardHandler("hall_of_fame"))
		leaderboards.POST("/add", h.AddLeaderboardPoints)
		leaderboards.DELETE("/remove", h.RemoveLeaderboardEntry)
	}
}

// Health reports service and database status.
func (h *Handler) Health(c *gin.Context) {
	if err := h.pool.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

// Error kinds reported to clients.
const (
	kindValidation = "validation_error"
	kindNotFound   = "not_found"
	kindConflict   = "conflict"
	kindAuth       = "unauthorized"
	kindInternal   = "internal_error"
)

// respondError maps service errors to the HTTP error taxonomy. Unexpected
// errors are logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCompetitionNotFound),
		errors.Is(err, service.ErrNotJoined),
		errors.Is(err, service.ErrAchievementNotFound),
		errors.Is(err, service.ErrUnlockNotFound),
		errors.Is(err, service.ErrRewardNotFound),
		errors.Is(err, service.ErrRecipientUnknown),
		errors.Is(err, service.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": kindNotFound, "message": err.Error()})

	case errors.Is(err, service.ErrInvalidDelta),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidBoard),
		errors.Is(err, service.ErrInvalidRarity):
		c.JSON(http.StatusBadRequest, gin.H{"error": kindValidation, "message": err.Error()})

	case errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrAlreadyUnlocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": kindConflict, "message": err.Error()})

	case errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": kindConflict, "message": err.Error()})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": kindAuth, "message": err.Error()})

	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": kindInternal, "message": "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": kindValidation, "message": message})
}
