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

// RatingHandler exposes reputation aggregates and their history.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler constructs the rating handler.
func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// Get godoc
// @Summary Load a player's rating in one role
// @Tags Ratings
// @Produce json
// @Param playerId path string true "Player ID"
// @Param role query string true "Rating role"
// @Success 200 {object} response.Envelope{data=dto.RatingResponse}
// @Router /players/{playerId}/rating [get]
func (h *RatingHandler) Get(c *gin.Context) {
	role, err := models.ParseRatingRole(c.Query("role"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown rating role"))
		return
	}
	rating, err := h.ratings.Get(c.Request.Context(), c.Param("playerId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RatingResponse{
		PlayerID:        rating.PlayerID,
		Role:            rating.Role,
		Score:           rating.Score,
		Category:        rating.Category(h.ratings.Thresholds()),
		Trend:           rating.Trend,
		CompletedOrders: rating.CompletedOrders,
		Metrics:         rating.Metrics,
		Warnings:        rating.Warnings,
		UpdatedAt:       rating.UpdatedAt,
	}, nil)
}

// History godoc
// @Summary Recent score changes for a player in one role
// @Tags Ratings
// @Produce json
// @Param playerId path string true "Player ID"
// @Param role query string true "Rating role"
// @Success 200 {object} response.Envelope{data=dto.RatingHistoryResponse}
// @Router /players/{playerId}/rating/history [get]
func (h *RatingHandler) History(c *gin.Context) {
	role, err := models.ParseRatingRole(c.Query("role"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown rating role"))
		return
	}
	events, err := h.ratings.History(c.Request.Context(), c.Param("playerId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RatingHistoryResponse{
		PlayerID: c.Param("playerId"),
		Role:     role,
		Events:   events,
	}, nil)
}
