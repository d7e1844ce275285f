package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamification-api/internal/middleware"
)

// AvailableRewards lists the reward catalogue, cheapest first.
func (h *Handler) AvailableRewards(c *gin.Context) {
	rewards, err := h.rewards.ListRewards(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(rewards))
	for _, reward := range rewards {
		result = append(result, gin.H{
			"id":          reward.ID,
			"name":        reward.Name,
			"description": reward.Description,
			"points":      reward.Points,
		})
	}

	c.JSON(http.StatusOK, gin.H{"rewards": result})
}

// MyPoints returns the caller's balance breakdown.
func (h *Handler) MyPoints(c *gin.Context) {
	identity := middleware.Identity(c)

	breakdown, err := h.rewards.MyPoints(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

type redeemRequest struct {
	RewardID *int64 `json:"reward_id"`
}

// Redeem spends points on a reward and reports the remaining balance.
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RewardID == nil {
		badRequest(c, "reward_id is required")
		return
	}

	identity := middleware.Identity(c)
	remaining, err := h.rewards.Redeem(c.Request.Context(), identity, *req.RewardID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_points": remaining})
}

type donateRequest struct {
	Amount    *int64 `json:"amount"`
	Recipient string `json:"recipient" binding:"required"`
}

// DonatePoints transfers points from the caller to another user.
func (h *Handler) DonatePoints(c *gin.Context) {
	var req donateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		badRequest(c, "amount and recipient are required")
		return
	}

	identity := middleware.Identity(c)
	remaining, err := h.rewards.Donate(c.Request.Context(), identity, req.Recipient, *req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_points": remaining})
}

type addRewardRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Points      *int64  `json:"points"`
}

// AddReward adds a reward to the catalogue.
func (h *Handler) AddReward(c *gin.Context) {
	var req addRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Points == nil {
		badRequest(c, "name and points are required")
		return
	}

	reward, err := h.rewards.AddReward(c.Request.Context(), req.Name, req.Description, *req.Points)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reward_id": reward.ID, "name": reward.Name, "points": reward.Points})
}

// RemoveReward deletes a reward from the catalogue.
func (h *Handler) RemoveReward(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RewardID == nil {
		badRequest(c, "reward_id is required")
		return
	}

	if err := h.rewards.RemoveReward(c.Request.Context(), *req.RewardID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reward removed"})
}
