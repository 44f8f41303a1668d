package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// PublishRequest captures POST /orders/drafts/:id/publish payload.
type PublishRequest struct {
	Visibility    string   `json:"visibility" binding:"required,visibility"`
	GuaranteeTier *string  `json:"guaranteeTier,omitempty"`
	Invited       []string `json:"invited,omitempty"`
}

// OrderResponse exposes a published order.
type OrderResponse struct {
	ID                string                `json:"id"`
	OwnerID           string                `json:"ownerId"`
	Brief             models.OrderBrief     `json:"brief"`
	Status            models.OrderStatus    `json:"status"`
	EscrowState       models.EscrowState    `json:"escrowState"`
	ExecutorID        *string               `json:"executorId,omitempty"`
	Deadline          *time.Time            `json:"deadline,omitempty"`
	Views             int                   `json:"views"`
	Budget            models.BudgetEstimate `json:"budget"`
	Visibility        models.OrderVisibility `json:"visibility"`
	ClientConfirmed   bool                  `json:"clientConfirmed"`
	ExecutorConfirmed bool                  `json:"executorConfirmed"`
	ManualReview      bool                  `json:"manualReview"`
	PublishedAt       time.Time             `json:"publishedAt"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// AcceptRequest captures an executor taking an open order.
type AcceptRequest struct {
	ExecutorID string `json:"executorId" binding:"required"`
}

// CancelRequest captures a client-side cancellation.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=5,max=500"`
}

// ConfirmRequest captures one party's completion confirmation.
type ConfirmRequest struct {
	PartyID string `json:"partyId" binding:"required"`
}

// ExpirySweepResponse reports one pass of the deadline sweep.
type ExpirySweepResponse struct {
	Expired  int `json:"expired"`
	Refunded int `json:"refunded"`
}
