package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RecalcRequest captures POST /ratings/recalculate payload. An empty scope
// replays every aggregate.
type RecalcRequest struct {
	PlayerID *string `json:"playerId,omitempty"`
	Role     *string `json:"role,omitempty" binding:"omitempty,ratingrole"`
	DryRun   bool    `json:"dryRun"`
}

// RecalcJobResponse is returned after enqueueing a recalculation.
type RecalcJobResponse struct {
	ID     string           `json:"id"`
	Status models.JobStatus `json:"status"`
}

// RecalcStatusResponse exposes job progress and outcome.
type RecalcStatusResponse struct {
	ID             string            `json:"id"`
	Scope          models.RecalcScope `json:"scope"`
	Status         models.JobStatus  `json:"status"`
	ProcessedCount int               `json:"processedCount"`
	FailedCount    int               `json:"failedCount"`
	Errors         models.JobErrors  `json:"errors,omitempty"`
	ResultURL      *string           `json:"resultUrl,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	FinishedAt     *time.Time        `json:"finishedAt,omitempty"`
}
