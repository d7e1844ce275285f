package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gamification-api/internal/middleware"
	"gamification-api/internal/model"
)

// namedCompetitions are the well-known competitions joinable through their
// own routes. Joining one creates the competition on first use.
var namedCompetitions = []string{
	"code-quality",
	"learning",
	"fitness",
	"sustainability",
	"creativity",
	"team-building",
}

func serializeCompetition(comp *model.Competition) gin.H {
	return gin.H{
		"id":          comp.ID,
		"title":       comp.Title,
		"description": comp.Description,
		"active":      comp.Active,
		"created_at":  comp.CreatedAt,
	}
}

// AllCompetitions lists every competition.
func (h *Handler) AllCompetitions(c *gin.Context) {
	competitions, err := h.competitions.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(competitions))
	for _, comp := range competitions {
		result = append(result, serializeCompetition(comp))
	}

	c.JSON(http.StatusOK, gin.H{"competitions": result})
}

// MyCompetitions lists the caller's competitions from both membership
// paths, one entry per membership row.
func (h *Handler) MyCompetitions(c *gin.Context) {
	identity := middleware.Identity(c)

	competitions, err := h.competitions.MyCompetitions(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(competitions))
	for _, comp := range competitions {
		result = append(result, serializeCompetition(comp))
	}

	c.JSON(http.StatusOK, gin.H{"competitions": result})
}

// JoinCompetition joins through the simple-membership path. Duplicate joins
// add duplicate membership rows.
func (h *Handler) JoinCompetition(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CompetitionID == nil {
		badRequest(c, "competition_id is required")
		return
	}

	identity := middleware.Identity(c)
	competition, err := h.competitions.JoinSimple(c.Request.Context(), identity, *req.CompetitionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializeCompetition(competition))
}

// LeaveCompetition leaves a competition through whichever paths the caller
// joined: the participation is banked and removed, and the oldest simple
// membership row is deleted.
func (h *Handler) LeaveCompetition(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CompetitionID == nil {
		badRequest(c, "competition_id is required")
		return
	}

	identity := middleware.Identity(c)
	if err := h.competitions.LeaveAny(c.Request.Context(), identity, *req.CompetitionID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left competition", "competition_id": *req.CompetitionID})
}

// joinNamed joins (and creates on first use) the competition with the given
// title through the simple-membership path.
func (h *Handler) joinNamed(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := middleware.Identity(c)

		competition, err := h.competitions.JoinNamed(c.Request.Context(), identity, title)
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, serializeCompetition(competition))
	}
}
