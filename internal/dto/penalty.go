package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// ApplyPenaltyRequest captures POST /penalties payload.
type ApplyPenaltyRequest struct {
	PlayerID      string     `json:"playerId" binding:"required"`
	Role          string     `json:"role" binding:"required,ratingrole"`
	Type          string     `json:"type" binding:"required,penaltytype"`
	Delta         float64    `json:"delta" binding:"required"`
	Reason        string     `json:"reason" binding:"required"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	LinkedOrderID *string    `json:"linkedOrderId,omitempty"`
}

// ReversePenaltyRequest captures a reversal with its audit note.
type ReversePenaltyRequest struct {
	Note string `json:"note" binding:"required,min=5,max=500"`
}

// PenaltyResponse exposes one penalty row.
type PenaltyResponse struct {
	ID            string               `json:"id"`
	PlayerID      string               `json:"playerId"`
	Role          models.RatingRole    `json:"role"`
	Type          models.PenaltyType   `json:"type"`
	Delta         float64              `json:"delta"`
	Reason        string               `json:"reason"`
	AppliedBy     string               `json:"appliedBy"`
	AppliedAt     time.Time            `json:"appliedAt"`
	ExpiresAt     *time.Time           `json:"expiresAt,omitempty"`
	Status        models.PenaltyStatus `json:"status"`
	LinkedOrderID *string              `json:"linkedOrderId,omitempty"`
	ReversedBy    *string              `json:"reversedBy,omitempty"`
	ReversalNote  *string              `json:"reversalNote,omitempty"`
	ReversedAt    *time.Time           `json:"reversedAt,omitempty"`
}
