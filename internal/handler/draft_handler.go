package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/service"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/response"
)

// DraftHandler exposes draft authoring and validation endpoints.
type DraftHandler struct {
	drafts  *service.DraftService
	metrics *service.MetricsService
}

// NewDraftHandler constructs the draft handler.
func NewDraftHandler(drafts *service.DraftService, metrics *service.MetricsService) *DraftHandler {
	return &DraftHandler{drafts: drafts, metrics: metrics}
}

// Create godoc
// @Summary Create an order draft
// @Tags Drafts
// @Accept json
// @Produce json
// @Param request body dto.CreateDraftRequest true "Draft brief"
// @Success 201 {object} response.Envelope{data=dto.DraftResponse}
// @Router /orders/drafts [post]
func (h *DraftHandler) Create(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toDraftResponse(draft))
}

// List godoc
// @Summary List the caller's drafts
// @Tags Drafts
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.DraftResponse}
// @Router /orders/drafts [get]
func (h *DraftHandler) List(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	drafts, err := h.drafts.List(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.DraftResponse, 0, len(drafts))
	for i := range drafts {
		out = append(out, *toDraftResponse(&drafts[i]))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Get godoc
// @Summary Load one draft
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope{data=dto.DraftResponse}
// @Router /orders/drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	draft, err := h.drafts.Get(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toDraftResponse(draft), nil)
}

// Update godoc
// @Summary Edit a draft brief
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body dto.UpdateDraftRequest true "Partial brief patch"
// @Success 200 {object} response.Envelope{data=dto.DraftResponse}
// @Router /orders/drafts/{id} [patch]
func (h *DraftHandler) Update(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	draft, err := h.drafts.Update(c.Request.Context(), c.Param("id"), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toDraftResponse(draft), nil)
}

// Discard godoc
// @Summary Discard a draft
// @Tags Drafts
// @Param id path string true "Draft ID"
// @Success 204
// @Router /orders/drafts/{id} [delete]
func (h *DraftHandler) Discard(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	if err := h.drafts.Discard(c.Request.Context(), c.Param("id"), owner); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Validate godoc
// @Summary Validate a draft and price it
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope{data=dto.ValidationResponse}
// @Router /orders/drafts/{id}/validate [post]
func (h *DraftHandler) Validate(c *gin.Context) {
	owner, ok := actorID(c)
	if !ok {
		return
	}
	draft, err := h.drafts.Validate(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := dto.ValidationResponse{
		DraftID: draft.ID,
		Status:  draft.Status,
		Budget:  draft.Budget,
	}
	if draft.ValidationSummary != nil {
		out.Validation = *draft.ValidationSummary
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Estimate godoc
// @Summary Price a brief without saving it
// @Tags Drafts
// @Accept json
// @Produce json
// @Param request body dto.EstimateRequest true "Brief to price"
// @Success 200 {object} response.Envelope{data=dto.EstimateResponse}
// @Router /orders/estimate [post]
func (h *DraftHandler) Estimate(c *gin.Context) {
	var req dto.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	start := time.Now()
	budget, err := h.drafts.Estimate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveEstimate(time.Since(start))
	response.JSON(c, http.StatusOK, dto.EstimateResponse{Budget: *budget}, nil)
}

func toDraftResponse(draft *models.OrderDraft) *dto.DraftResponse {
	return &dto.DraftResponse{
		ID:              draft.ID,
		OwnerID:         draft.OwnerID,
		Brief:           draft.Brief,
		Status:          draft.Status,
		Validation:      draft.ValidationSummary,
		Budget:          draft.Budget,
		CreatedAt:       draft.CreatedAt,
		UpdatedAt:       draft.UpdatedAt,
		LastValidatedAt: draft.LastValidatedAt,
	}
}
