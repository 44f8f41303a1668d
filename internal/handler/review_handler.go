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

// ReviewHandler exposes review submission and moderation.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs the review handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Submit godoc
// @Summary Review a completed order
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body dto.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope{data=dto.ReviewResponse}
// @Router /orders/{id}/reviews [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if req.ReviewerID != actor {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "reviews can only be filed by their author"))
		return
	}
	review, err := h.reviews.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toReviewResponse(review))
}

// ListByOrder godoc
// @Summary List published reviews of an order
// @Tags Reviews
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope{data=[]dto.ReviewResponse}
// @Router /orders/{id}/reviews [get]
func (h *ReviewHandler) ListByOrder(c *gin.Context) {
	reviews, err := h.reviews.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, *toReviewResponse(&reviews[i]))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Moderate godoc
// @Summary Apply a moderation verdict to a review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param request body dto.ModerateReviewRequest true "Verdict"
// @Success 200 {object} response.Envelope{data=dto.ReviewResponse}
// @Router /reviews/{id}/moderate [post]
func (h *ReviewHandler) Moderate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	review, err := h.reviews.Moderate(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toReviewResponse(review), nil)
}

func toReviewResponse(review *models.PlayerOrderReview) *dto.ReviewResponse {
	return &dto.ReviewResponse{
		ID:        review.ID,
		OrderID:   review.OrderID,
		TargetID:  review.TargetID,
		Role:      review.Role,
		Ratings:   review.Ratings,
		Text:      review.Text,
		Flags:     review.Flags,
		Status:    review.Status,
		CreatedAt: review.CreatedAt,
	}
}
