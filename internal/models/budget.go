package models

import (
	"database/sql/driver"
	"time"
)

// BudgetRange brackets the recommended reward around the estimate.
type BudgetRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// BudgetEstimate is an immutable pricing snapshot. It is derived state:
// always recomputable from the brief plus the market index at CalculatedAt,
// never treated as a source of truth.
type BudgetEstimate struct {
	ComplexityScore  float64     `json:"complexity_score"`
	RiskModifier     float64     `json:"risk_modifier"`
	MarketIndex      float64     `json:"market_index"`
	TimeModifier     float64     `json:"time_modifier"`
	BaseReward       float64     `json:"base_reward"`
	Escrow           float64     `json:"escrow"`
	Commission       float64     `json:"commission"`
	CommissionRate   float64     `json:"commission_rate"`
	InsurancePremium *float64    `json:"insurance_premium,omitempty"`
	MedianDeviation  float64     `json:"median_deviation"`
	RecommendedRange BudgetRange `json:"recommended_range"`
	Currency         string      `json:"currency"`
	Recommendations  []string    `json:"recommendations,omitempty"`
	Warnings         []string    `json:"warnings,omitempty"`
	CalculatedAt     time.Time   `json:"calculated_at"`
}

// Value marshals the estimate for persistence.
func (e BudgetEstimate) Value() (driver.Value, error) { return jsonbValue(e) }

// Scan unmarshals a JSONB estimate.
func (e *BudgetEstimate) Scan(value interface{}) error { return jsonbScan(value, e) }
