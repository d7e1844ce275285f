package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// boardHandler serves one leaderboard board.
func (h *Handler) boardHandler(board string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.leaderboards.Board(c.Request.Context(), board)
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"board": board, "leaderboard": entries})
	}
}

type leaderboardAddRequest struct {
	User   string `json:"user" binding:"required"`
	Points *int64 `json:"points"`
	Board  string `json:"board"`
}

// AddLeaderboardPoints sets a user's manual points on a board, overwriting
// any existing entry. Responds 201 when the entry was created, 200 when an
// existing one was updated.
func (h *Handler) AddLeaderboardPoints(c *gin.Context) {
	var req leaderboardAddRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Points == nil {
		badRequest(c, "user and points are required")
		return
	}

	board := req.Board
	if board == "" {
		board = "global"
	}

	created, err := h.leaderboards.Add(c.Request.Context(), req.User, board, *req.Points)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	message := "updated"
	if created {
		status = http.StatusCreated
		message = "added"
	}
	c.JSON(status, gin.H{"message": message, "user": req.User, "board": board, "points": *req.Points})
}

type leaderboardRemoveRequest struct {
	ID string `json:"id" binding:"required"`
}

// RemoveLeaderboardEntry deletes a user's manual entries, or removes a user
// entirely when the id carries the "user_" prefix.
func (h *Handler) RemoveLeaderboardEntry(c *gin.Context) {
	var req leaderboardRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id is required")
		return
	}

	if err := h.leaderboards.Remove(c.Request.Context(), req.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
