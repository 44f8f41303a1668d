package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// CheckpointPayload is one intermediate milestone in a brief.
type CheckpointPayload struct {
	Title string    `json:"title" binding:"required,min=3,max=120"`
	Due   time.Time `json:"due" binding:"required"`
}

// BriefPayload captures the order brief on create and update.
type BriefPayload struct {
	Goal         string              `json:"goal" binding:"required,min=12,max=500"`
	Objectives   []string            `json:"objectives" binding:"required,min=1,dive,min=3,max=200"`
	Checkpoints  []CheckpointPayload `json:"checkpoints" binding:"dive"`
	RiskLevel    string              `json:"riskLevel" binding:"required,risklevel"`
	TeamSize     int                 `json:"teamSize" binding:"required,min=1"`
	Privacy      string              `json:"privacy" binding:"required,visibility"`
	TemplateCode string              `json:"templateCode" binding:"required,templatecode"`
	Deadline     *time.Time          `json:"deadline,omitempty"`
}

// CreateDraftRequest captures POST /orders/drafts payload.
type CreateDraftRequest struct {
	Brief BriefPayload `json:"brief" binding:"required"`
}

// UpdateDraftRequest captures PATCH /orders/drafts/:id payload. Nil fields
// are left untouched.
type UpdateDraftRequest struct {
	Goal         *string              `json:"goal,omitempty" binding:"omitempty,min=12,max=500"`
	Objectives   *[]string            `json:"objectives,omitempty"`
	Checkpoints  *[]CheckpointPayload `json:"checkpoints,omitempty"`
	RiskLevel    *string              `json:"riskLevel,omitempty" binding:"omitempty,risklevel"`
	TeamSize     *int                 `json:"teamSize,omitempty" binding:"omitempty,min=1"`
	Privacy      *string              `json:"privacy,omitempty" binding:"omitempty,visibility"`
	TemplateCode *string              `json:"templateCode,omitempty" binding:"omitempty,templatecode"`
	Deadline     *time.Time           `json:"deadline,omitempty"`
}

// DraftResponse exposes a draft with its latest validation and budget state.
type DraftResponse struct {
	ID              string                    `json:"id"`
	OwnerID         string                    `json:"ownerId"`
	Brief           models.OrderBrief         `json:"brief"`
	Status          models.DraftStatus        `json:"status"`
	Validation      *models.ValidationSummary `json:"validation,omitempty"`
	Budget          *models.BudgetEstimate    `json:"budget,omitempty"`
	CreatedAt       time.Time                 `json:"createdAt"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
	LastValidatedAt *time.Time                `json:"lastValidatedAt,omitempty"`
}

// ValidationResponse is returned by the explicit validate operation.
type ValidationResponse struct {
	DraftID    string                   `json:"draftId"`
	Status     models.DraftStatus       `json:"status"`
	Validation models.ValidationSummary `json:"validation"`
	Budget     *models.BudgetEstimate   `json:"budget,omitempty"`
}

// EstimateRequest captures a standalone pricing preview, usable without a
// persisted draft.
type EstimateRequest struct {
	Brief BriefPayload `json:"brief" binding:"required"`
}

// EstimateResponse wraps the computed budget.
type EstimateResponse struct {
	Budget models.BudgetEstimate `json:"budget"`
}
