package models

import (
	"database/sql/driver"
	"time"
)

// RatingThresholds are the configured tier boundaries. Category is always a
// pure function of the post-decay score through these bounds; it is never
// stored independently.
type RatingThresholds struct {
	BronzeUpper float64
	SilverUpper float64
	GoldUpper   float64
}

// CategoryFor buckets a score.
func (t RatingThresholds) CategoryFor(score float64) RatingCategory {
	switch {
	case score < t.BronzeUpper:
		return CategoryBronze
	case score < t.SilverUpper:
		return CategorySilver
	case score < t.GoldUpper:
		return CategoryGold
	default:
		return CategoryPlatinum
	}
}

// RatingMetrics aggregates event counts feeding the score.
type RatingMetrics struct {
	ReviewsCounted   int     `json:"reviews_counted"`
	PenaltiesCounted int     `json:"penalties_counted"`
	AverageOverall   float64 `json:"average_overall"`
}

// Value marshals metrics for persistence.
func (m RatingMetrics) Value() (driver.Value, error) { return jsonbValue(m) }

// Scan unmarshals JSONB metrics.
func (m *RatingMetrics) Scan(value interface{}) error { return jsonbScan(value, m) }

// SeasonStats snapshots the current season's activity.
type SeasonStats struct {
	SeasonID     string  `json:"season_id,omitempty"`
	OrdersCount  int     `json:"orders_count"`
	ScoreAtStart float64 `json:"score_at_start"`
}

// Value marshals season stats for persistence.
func (s SeasonStats) Value() (driver.Value, error) { return jsonbValue(s) }

// Scan unmarshals JSONB season stats.
func (s *SeasonStats) Scan(value interface{}) error { return jsonbScan(value, s) }

// RatingWarnings collects advisory messages emitted by the engine.
type RatingWarnings []string

// Value marshals warnings for persistence.
func (w RatingWarnings) Value() (driver.Value, error) { return jsonbValue(w) }

// Scan unmarshals JSONB warnings.
func (w *RatingWarnings) Scan(value interface{}) error { return jsonbScan(value, w) }

// PlayerOrderRating is the materialized per-(player, role) reputation view,
// rebuilt at any time by replaying the review and penalty logs.
type PlayerOrderRating struct {
	PlayerID        string         `db:"player_id" json:"player_id"`
	Role            RatingRole     `db:"role" json:"role"`
	Score           float64        `db:"score" json:"score"`
	DecayApplied    float64        `db:"decay_applied" json:"decay_applied"`
	Trend           float64        `db:"trend" json:"trend"`
	CompletedOrders int            `db:"completed_orders" json:"completed_orders"`
	Metrics         RatingMetrics  `db:"metrics" json:"metrics"`
	Warnings        RatingWarnings `db:"warnings" json:"warnings,omitempty"`
	SeasonStats     SeasonStats    `db:"season_stats" json:"season_stats"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Category derives the tier from the current score.
func (r *PlayerOrderRating) Category(t RatingThresholds) RatingCategory {
	return t.CategoryFor(r.Score)
}

// RatingEventSource names what produced a rating event.
type RatingEventSource string

const (
	RatingSourceReview  RatingEventSource = "review"
	RatingSourcePenalty RatingEventSource = "penalty"
	RatingSourceDecay   RatingEventSource = "decay"
	RatingSourceRecalc  RatingEventSource = "recalc"
)

// RatingEvent is one append-only entry in a player's score history. The
// trailing window of events yields the trend signal.
type RatingEvent struct {
	ID         string            `db:"id" json:"id"`
	PlayerID   string            `db:"player_id" json:"player_id"`
	Role       RatingRole        `db:"role" json:"role"`
	Source     RatingEventSource `db:"source" json:"source"`
	Delta      float64           `db:"delta" json:"delta"`
	ScoreAfter float64           `db:"score_after" json:"score_after"`
	OccurredAt time.Time         `db:"occurred_at" json:"occurred_at"`
}
