package models

import (
	"database/sql/driver"
	"time"
)

// ReviewRatings is the per-axis score block of a review. Overall drives the
// reputation update; the remaining axes are informational.
type ReviewRatings struct {
	Overall         int `json:"overall"`
	Communication   int `json:"communication,omitempty"`
	Professionalism int `json:"professionalism,omitempty"`
	Timeliness      int `json:"timeliness,omitempty"`
}

// Value marshals ratings for persistence.
func (r ReviewRatings) Value() (driver.Value, error) { return jsonbValue(r) }

// Scan unmarshals JSONB ratings.
func (r *ReviewRatings) Scan(value interface{}) error { return jsonbScan(value, r) }

// ReviewFlags holds community flags raised against a review.
type ReviewFlags []string

// Value marshals flags for persistence.
func (f ReviewFlags) Value() (driver.Value, error) { return jsonbValue(f) }

// Scan unmarshals JSONB flags.
func (f *ReviewFlags) Scan(value interface{}) error { return jsonbScan(value, f) }

// PlayerOrderReview is one participant's review of the other over a finished
// order. Append-only: at most one review per (order, reviewer, target), and
// reviewer and target must both have participated in the order.
type PlayerOrderReview struct {
	ID             string        `db:"id" json:"id"`
	OrderID        string        `db:"order_id" json:"order_id"`
	ReviewerID     string        `db:"reviewer_id" json:"reviewer_id"`
	TargetID       string        `db:"target_id" json:"target_id"`
	Role           RatingRole    `db:"role" json:"role"`
	Ratings        ReviewRatings `db:"ratings" json:"ratings"`
	Text           string        `db:"text" json:"text"`
	Flags          ReviewFlags   `db:"flags" json:"flags,omitempty"`
	Status         ReviewStatus  `db:"status" json:"status"`
	SentimentScore *float64      `db:"sentiment_score" json:"sentiment_score,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}
