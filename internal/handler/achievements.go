package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamification-api/internal/middleware"
)

// AvailableAchievements lists the visible achievements with the caller's
// unlock state.
func (h *Handler) AvailableAchievements(c *gin.Context) {
	identity := middleware.Identity(c)

	states, err := h.achievements.List(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(states))
	for _, st := range states {
		result = append(result, gin.H{
			"id":          st.Achievement.ID,
			"name":        st.Achievement.Name,
			"description": st.Achievement.Description,
			"rarity":      st.Achievement.Rarity,
			"unlocked":    st.Unlocked,
		})
	}

	c.JSON(http.StatusOK, gin.H{"achievements": result})
}

type unlockRequest struct {
	AchievementID *int64 `json:"achievement_id"`
}

// UnlockAchievement records an unlock for the caller and creates a
// celebration notice.
func (h *Handler) UnlockAchievement(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AchievementID == nil {
		badRequest(c, "achievement_id is required")
		return
	}

	identity := middleware.Identity(c)
	achievement, err := h.achievements.Unlock(c.Request.Context(), identity, *req.AchievementID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "achievement unlocked",
		"name":    achievement.Name,
		"rarity":  achievement.Rarity,
	})
}

// LockAchievement removes the caller's unlock of an achievement.
func (h *Handler) LockAchievement(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AchievementID == nil {
		badRequest(c, "achievement_id is required")
		return
	}

	identity := middleware.Identity(c)
	if err := h.achievements.Lock(c.Request.Context(), identity, *req.AchievementID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "achievement locked"})
}

// MyAchievementProgress summarizes the caller's unlocks and points.
func (h *Handler) MyAchievementProgress(c *gin.Context) {
	identity := middleware.Identity(c)

	progress, err := h.achievements.MyProgress(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

type createAchievementRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Rarity      string  `json:"rarity"`
}

// CreateAchievement adds a custom achievement.
func (h *Handler) CreateAchievement(c *gin.Context) {
	var req createAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	achievement, err := h.achievements.Create(c.Request.Context(), req.Name, req.Description, req.Rarity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"achievement_id": achievement.ID,
		"name":           achievement.Name,
		"rarity":         achievement.Rarity,
	})
}

// Celebrations lists the most recent unlock celebrations.
func (h *Handler) Celebrations(c *gin.Context) {
	celebrations, err := h.achievements.Celebrations(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(celebrations))
	for _, cel := range celebrations {
		result = append(result, gin.H{
			"user_id":          cel.UserID,
			"achievement_name": cel.AchievementName,
			"message":          cel.Message,
			"created_at":       cel.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"celebrations": result})
}

// RemoveAchievement soft-deletes an achievement.
func (h *Handler) RemoveAchievement(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AchievementID == nil {
		badRequest(c, "achievement_id is required")
		return
	}

	if err := h.achievements.Remove(c.Request.Context(), *req.AchievementID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "achievement removed"})
}

type removeUnlockRequest struct {
	UserAchievementID *int64 `json:"user_achievement_id"`
}

// RemoveUnlock deletes an unlock row by id.
func (h *Handler) RemoveUnlock(c *gin.Context) {
	var req removeUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserAchievementID == nil {
		badRequest(c, "user_achievement_id is required")
		return
	}

	if err := h.achievements.RemoveUnlock(c.Request.Context(), *req.UserAchievementID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "unlock removed"})
}
