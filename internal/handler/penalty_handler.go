package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/service"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/response"
)

// PenaltyHandler exposes the penalty subsystem. These routes sit behind
// moderator tooling at the platform edge.
type PenaltyHandler struct {
	penalties *service.PenaltyService
}

// NewPenaltyHandler constructs the penalty handler.
func NewPenaltyHandler(penalties *service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{penalties: penalties}
}

// Apply godoc
// @Summary Apply a penalty to a player
// @Tags Penalties
// @Accept json
// @Produce json
// @Param request body dto.ApplyPenaltyRequest true "Penalty"
// @Success 201 {object} response.Envelope{data=dto.PenaltyResponse}
// @Router /penalties [post]
func (h *PenaltyHandler) Apply(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ApplyPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	penalty, err := h.penalties.Apply(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toPenaltyResponse(penalty))
}

// Get godoc
// @Summary Load one penalty
// @Tags Penalties
// @Produce json
// @Param id path string true "Penalty ID"
// @Success 200 {object} response.Envelope{data=dto.PenaltyResponse}
// @Router /penalties/{id} [get]
func (h *PenaltyHandler) Get(c *gin.Context) {
	penalty, err := h.penalties.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toPenaltyResponse(penalty), nil)
}

// List godoc
// @Summary List a player's penalties in one role
// @Tags Penalties
// @Produce json
// @Param playerId path string true "Player ID"
// @Param role query string true "Rating role"
// @Success 200 {object} response.Envelope{data=[]dto.PenaltyResponse}
// @Router /players/{playerId}/penalties [get]
func (h *PenaltyHandler) List(c *gin.Context) {
	role, err := models.ParseRatingRole(c.Query("role"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown rating role"))
		return
	}
	penalties, err := h.penalties.List(c.Request.Context(), c.Param("playerId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.PenaltyResponse, 0, len(penalties))
	for i := range penalties {
		out = append(out, *toPenaltyResponse(&penalties[i]))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Reverse godoc
// @Summary Reverse an active penalty
// @Tags Penalties
// @Accept json
// @Produce json
// @Param id path string true "Penalty ID"
// @Param request body dto.ReversePenaltyRequest true "Audit note"
// @Success 200 {object} response.Envelope{data=dto.PenaltyResponse}
// @Router /penalties/{id}/reverse [post]
func (h *PenaltyHandler) Reverse(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ReversePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	penalty, err := h.penalties.Reverse(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toPenaltyResponse(penalty), nil)
}

func toPenaltyResponse(penalty *models.PlayerOrderPenalty) *dto.PenaltyResponse {
	return &dto.PenaltyResponse{
		ID:            penalty.ID,
		PlayerID:      penalty.PlayerID,
		Role:          penalty.Role,
		Type:          penalty.Type,
		Delta:         penalty.Delta,
		Reason:        penalty.Reason,
		AppliedBy:     penalty.AppliedBy,
		AppliedAt:     penalty.AppliedAt,
		ExpiresAt:     penalty.ExpiresAt,
		Status:        penalty.Status,
		LinkedOrderID: penalty.LinkedOrderID,
		ReversedBy:    penalty.ReversedBy,
		ReversalNote:  penalty.ReversalNote,
		ReversedAt:    penalty.ReversedAt,
	}
}
