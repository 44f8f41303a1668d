package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RatingsPayload carries the four 1..5 category marks of a review.
type RatingsPayload struct {
	Overall         int `json:"overall" binding:"required,min=1,max=5"`
	Communication   int `json:"communication" binding:"required,min=1,max=5"`
	Professionalism int `json:"professionalism" binding:"required,min=1,max=5"`
	Timeliness      int `json:"timeliness" binding:"required,min=1,max=5"`
}

// CreateReviewRequest captures POST /orders/:id/reviews payload.
type CreateReviewRequest struct {
	ReviewerID string         `json:"reviewerId" binding:"required"`
	TargetID   string         `json:"targetId" binding:"required"`
	Ratings    RatingsPayload `json:"ratings" binding:"required"`
	Text       string         `json:"text" binding:"omitempty,max=2000"`
	Flags      []string       `json:"flags,omitempty"`
}

// ModerateReviewRequest captures a moderation verdict.
type ModerateReviewRequest struct {
	Status string `json:"status" binding:"required,reviewstatus"`
}

// ReviewResponse exposes a stored review.
type ReviewResponse struct {
	ID        string               `json:"id"`
	OrderID   string               `json:"orderId"`
	TargetID  string               `json:"targetId"`
	Role      models.RatingRole    `json:"role"`
	Ratings   models.ReviewRatings `json:"ratings"`
	Text      string               `json:"text,omitempty"`
	Flags     []string             `json:"flags,omitempty"`
	Status    models.ReviewStatus  `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
}
