package dto

import (
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RatingResponse exposes one per-role reputation aggregate.
type RatingResponse struct {
	PlayerID        string                `json:"playerId"`
	Role            models.RatingRole     `json:"role"`
	Score           float64               `json:"score"`
	Category        models.RatingCategory `json:"category"`
	Trend           float64               `json:"trend"`
	CompletedOrders int                   `json:"completedOrders"`
	Metrics         models.RatingMetrics  `json:"metrics"`
	Warnings        []string              `json:"warnings,omitempty"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// RatingHistoryResponse lists recent score changes.
type RatingHistoryResponse struct {
	PlayerID string               `json:"playerId"`
	Role     models.RatingRole    `json:"role"`
	Events   []models.RatingEvent `json:"events"`
}
