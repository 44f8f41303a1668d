package models

import "time"

// PlayerOrderPenalty is a signed, bounded, auditable negative adjustment.
// Delta is always in [-100, 0]; reversed penalties never count toward the
// live score, and expired penalties drop out of future recalculations only.
type PlayerOrderPenalty struct {
	ID            string        `db:"id" json:"id"`
	PlayerID      string        `db:"player_id" json:"player_id"`
	Role          RatingRole    `db:"role" json:"role"`
	Type          PenaltyType   `db:"penalty_type" json:"penalty_type"`
	Delta         float64       `db:"delta" json:"delta"`
	Reason        string        `db:"reason" json:"reason"`
	AppliedBy     string        `db:"applied_by" json:"applied_by"`
	AppliedAt     time.Time     `db:"applied_at" json:"applied_at"`
	ExpiresAt     *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	Status        PenaltyStatus `db:"status" json:"status"`
	LinkedOrderID *string       `db:"linked_order_id" json:"linked_order_id,omitempty"`
	ReversedBy    *string       `db:"reversed_by" json:"reversed_by,omitempty"`
	ReversalNote  *string       `db:"reversal_note" json:"reversal_note,omitempty"`
	ReversedAt    *time.Time    `db:"reversed_at" json:"reversed_at,omitempty"`
}

// CountsAt reports whether the penalty contributes to a replay at the
// given time.
func (p *PlayerOrderPenalty) CountsAt(now time.Time) bool {
	if p.Status != PenaltyActive {
		return false
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	return true
}
