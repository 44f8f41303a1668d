package models

import (
	"database/sql/driver"
	"time"
)

// Checkpoint is an intermediate milestone inside an order brief.
type Checkpoint struct {
	Title string    `json:"title"`
	Due   time.Time `json:"due"`
}

// OrderBrief is the owner-authored description of the work. Stored as JSONB
// alongside the draft and carried unchanged onto the published order.
type OrderBrief struct {
	Goal          string          `json:"goal"`
	Objectives    []string        `json:"objectives"`
	Checkpoints   []Checkpoint    `json:"checkpoints,omitempty"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	TeamSize      int             `json:"team_size"`
	Privacy       OrderVisibility `json:"privacy"`
	TemplateCode  TemplateCode    `json:"template_code"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	GuaranteeTier GuaranteeTier   `json:"guarantee_tier"`
}

// Value marshals the brief for persistence.
func (b OrderBrief) Value() (driver.Value, error) { return jsonbValue(b) }

// Scan unmarshals a JSONB brief.
func (b *OrderBrief) Scan(value interface{}) error { return jsonbScan(value, b) }

// RuleResult records a single validation rule outcome.
type RuleResult struct {
	Code   string `json:"code"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ValidationSummary is the pass/fail record produced by draft validation.
type ValidationSummary struct {
	Rules     []RuleResult `json:"rules"`
	Issues    []string     `json:"issues,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Passed reports whether every rule passed.
func (s *ValidationSummary) Passed() bool {
	if s == nil || len(s.Rules) == 0 {
		return false
	}
	for _, r := range s.Rules {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FreshAt reports whether the summary is younger than ttl at the given time.
func (s *ValidationSummary) FreshAt(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.CheckedAt) <= ttl
}

// Value marshals the summary for persistence.
func (s ValidationSummary) Value() (driver.Value, error) { return jsonbValue(s) }

// Scan unmarshals a JSONB summary.
func (s *ValidationSummary) Scan(value interface{}) error { return jsonbScan(value, s) }

// OrderDraft is the pre-publication form of an order. Mutable only by its
// owner; converted, not deleted, into a PublishedOrder on publication.
// Budget is only ever non-nil after at least one successful validation.
type OrderDraft struct {
	ID                string             `db:"id" json:"id"`
	OwnerID           string             `db:"owner_id" json:"owner_id"`
	Brief             OrderBrief         `db:"brief" json:"brief"`
	Status            DraftStatus        `db:"status" json:"status"`
	ValidationSummary *ValidationSummary `db:"validation_summary" json:"validation_summary,omitempty"`
	Budget            *BudgetEstimate    `db:"budget" json:"budget,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
	LastValidatedAt   *time.Time         `db:"last_validated_at" json:"last_validated_at,omitempty"`
}

// PublicationInfo records how an order went live. Stored as JSONB on the
// published order; the escrow state lives in its own column for sweeps.
type PublicationInfo struct {
	PublishedAt        time.Time       `json:"published_at"`
	PublishToken       string          `json:"publish_token"`
	Visibility         OrderVisibility `json:"visibility"`
	Invited            []string        `json:"invited,omitempty"`
	GuaranteeTier      GuaranteeTier   `json:"guarantee_tier"`
	LastNotificationAt *time.Time      `json:"last_notification_at,omitempty"`
}

// Value marshals publication info for persistence.
func (p PublicationInfo) Value() (driver.Value, error) { return jsonbValue(p) }

// Scan unmarshals JSONB publication info.
func (p *PublicationInfo) Scan(value interface{}) error { return jsonbScan(value, p) }

// PublishedOrder is the live marketplace order. Ownership of the escrowed
// funds moves to the escrow subsystem on publish.
type PublishedOrder struct {
	ID               string          `db:"id" json:"id"`
	OwnerID          string          `db:"owner_id" json:"owner_id"`
	Brief            OrderBrief      `db:"brief" json:"brief"`
	Status           OrderStatus     `db:"status" json:"status"`
	EscrowState      EscrowState     `db:"escrow_state" json:"escrow_state"`
	ExecutorID       *string         `db:"executor_id" json:"executor_id,omitempty"`
	Deadline         *time.Time      `db:"deadline" json:"deadline,omitempty"`
	Views            int             `db:"views" json:"views"`
	Budget           BudgetEstimate  `db:"budget" json:"budget"`
	Publication      PublicationInfo `db:"publication" json:"publication"`
	ClientConfirmed   bool            `db:"client_confirmed" json:"client_confirmed"`
	ExecutorConfirmed bool            `db:"executor_confirmed" json:"executor_confirmed"`
	ManualReview      bool            `db:"manual_review" json:"manual_review"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Assigned reports whether an executor holds the order.
func (o *PublishedOrder) Assigned() bool {
	return o.ExecutorID != nil && *o.ExecutorID != ""
}
