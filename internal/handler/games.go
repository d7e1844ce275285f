package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gamification-api/internal/middleware"
)

// ActiveGames lists the competitions open for joining, with their merged
// participant lists.
func (h *Handler) ActiveGames(c *gin.Context) {
	ctx := c.Request.Context()

	competitions, err := h.competitions.ListActive(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(competitions))
	for _, comp := range competitions {
		participants, err := h.competitions.Participants(ctx, comp.ID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		result = append(result, gin.H{
			"id":           comp.ID,
			"title":        comp.Title,
			"description":  comp.Description,
			"active":       comp.Active,
			"participants": participants,
		})
	}

	c.JSON(http.StatusOK, gin.H{"competitions": result})
}

type createGameRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// CreateGame adds a new competition.
func (h *Handler) CreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title is required")
		return
	}

	competition, err := h.competitions.Create(c.Request.Context(), req.Title, req.Description, true)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"competition_id": competition.ID, "title": competition.Title})
}

type joinGameRequest struct {
	CompetitionID *int64 `json:"competition_id"`
}

// JoinGame joins a competition through the progress-tracked path. Joining
// twice returns the same participation id.
func (h *Handler) JoinGame(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CompetitionID == nil {
		badRequest(c, "competition_id is required")
		return
	}

	identity := middleware.Identity(c)
	participation, created, err := h.competitions.JoinProgress(c.Request.Context(), identity, *req.CompetitionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"participation_id": participation.ID})
}

type updateProgressRequest struct {
	CompetitionID json.RawMessage `json:"competition_id"`
	Delta         json.Number     `json:"delta"`
}

// competitionRef accepts a competition reference sent as either a JSON
// number or a string. Callers address competitions by id or by title
// through the same field.
func competitionRef(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var title string
	if err := json.Unmarshal(raw, &title); err == nil {
		title = strings.TrimSpace(title)
		return title, title != ""
	}

	var id json.Number
	if err := json.Unmarshal(raw, &id); err == nil {
		return id.String(), true
	}

	return "", false
}

// UpdateProgress applies a delta to the caller's progress. The competition
// may be referenced by numeric id or by title.
func (h *Handler) UpdateProgress(c *gin.Context) {
	var req updateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ref, ok := competitionRef(req.CompetitionID)
	if !ok {
		badRequest(c, "competition_id is required")
		return
	}

	delta, err := req.Delta.Int64()
	if err != nil {
		badRequest(c, "delta must be an integer")
		return
	}

	identity := middleware.Identity(c)
	progress, err := h.competitions.UpdateProgress(c.Request.Context(), identity, ref, delta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// LeaveGame leaves a competition's progress-tracked path, banking any
// positive progress. Simple memberships are untouched.
func (h *Handler) LeaveGame(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CompetitionID == nil {
		badRequest(c, "competition_id is required")
		return
	}

	identity := middleware.Identity(c)
	if err := h.competitions.Leave(c.Request.Context(), identity, *req.CompetitionID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left competition"})
}

type removeCompetitionRequest struct {
	ID *int64 `json:"id"`
}

// RemoveCompetition deletes a competition, banking every participant's
// progress first.
func (h *Handler) RemoveCompetition(c *gin.Context) {
	var req removeCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == nil {
		badRequest(c, "id is required")
		return
	}

	if err := h.competitions.RemoveCompetition(c.Request.Context(), *req.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "competition removed"})
}

type removeParticipationRequest struct {
	ID *int64 `json:"id"`
}

// RemoveParticipation banks and deletes a single participation addressed
// by its id.
func (h *Handler) RemoveParticipation(c *gin.Context) {
	var req removeParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == nil {
		badRequest(c, "id is required")
		return
	}

	if err := h.competitions.RemoveParticipationByID(c.Request.Context(), *req.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "participation removed"})
}
