package models

import "fmt"

// ParseEnum decodes a raw string into one of the allowed values of a closed
// string enum. All enum parsing in the core goes through this single helper
// so unexpected wire values fail in one place.
func ParseEnum[T ~string](raw string, allowed ...T) (T, error) {
	for _, v := range allowed {
		if string(v) == raw {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown value %q", raw)
}

// DraftStatus tracks an order draft before publication.
type DraftStatus string

const (
	DraftStatusDraft      DraftStatus = "draft"
	DraftStatusValidated  DraftStatus = "validated"
	DraftStatusPublishing DraftStatus = "publishing"
	DraftStatusPublished  DraftStatus = "published"
	DraftStatusDiscarded  DraftStatus = "discarded"
)

// ParseDraftStatus decodes a draft status.
func ParseDraftStatus(raw string) (DraftStatus, error) {
	return ParseEnum(raw, DraftStatusDraft, DraftStatusValidated, DraftStatusPublishing, DraftStatusPublished, DraftStatusDiscarded)
}

// OrderStatus tracks a published order through its lifecycle.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "OPEN"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusExpired    OrderStatus = "EXPIRED"
)

// ParseOrderStatus decodes an order status.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	return ParseEnum(raw, OrderStatusOpen, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired)
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// EscrowState tracks funds held for a published order. States are strictly
// monotonic except the single refund edge reachable from pending_lock or
// locked.
type EscrowState string

const (
	EscrowPendingLock EscrowState = "pending_lock"
	EscrowLocked      EscrowState = "locked"
	EscrowReleased    EscrowState = "released"
	EscrowRefunded    EscrowState = "refunded"
)

// ParseEscrowState decodes an escrow state.
func ParseEscrowState(raw string) (EscrowState, error) {
	return ParseEnum(raw, EscrowPendingLock, EscrowLocked, EscrowReleased, EscrowRefunded)
}

// CanTransitionTo enforces escrow monotonicity.
func (s EscrowState) CanTransitionTo(next EscrowState) bool {
	switch s {
	case EscrowPendingLock:
		return next == EscrowLocked || next == EscrowRefunded
	case EscrowLocked:
		return next == EscrowReleased || next == EscrowRefunded
	}
	return false
}

// RiskLevel grades the declared danger of an order.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// ParseRiskLevel decodes a risk level.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	return ParseEnum(raw, RiskLow, RiskMedium, RiskHigh, RiskExtreme)
}

// GuaranteeTier selects the insurance level backing an order.
type GuaranteeTier string

const (
	GuaranteeNone     GuaranteeTier = "none"
	GuaranteeBasic    GuaranteeTier = "basic"
	GuaranteeStandard GuaranteeTier = "standard"
	GuaranteePremium  GuaranteeTier = "premium"
)

// ParseGuaranteeTier decodes a guarantee tier.
func ParseGuaranteeTier(raw string) (GuaranteeTier, error) {
	return ParseEnum(raw, GuaranteeNone, GuaranteeBasic, GuaranteeStandard, GuaranteePremium)
}

// OrderVisibility controls who can see and claim a published order.
type OrderVisibility string

const (
	VisibilityPublic     OrderVisibility = "public"
	VisibilityFriends    OrderVisibility = "friends"
	VisibilityInviteOnly OrderVisibility = "invite_only"
)

// ParseOrderVisibility decodes a visibility setting.
func ParseOrderVisibility(raw string) (OrderVisibility, error) {
	return ParseEnum(raw, VisibilityPublic, VisibilityFriends, VisibilityInviteOnly)
}

// TemplateCode classifies orders for market median lookups.
type TemplateCode string

const (
	TemplateCourierRun      TemplateCode = "courier_run"
	TemplateBodyguardEscort TemplateCode = "bodyguard_escort"
	TemplateNetrunSupport   TemplateCode = "netrun_support"
	TemplateSalvageSweep    TemplateCode = "salvage_sweep"
	TemplateIntelRecon      TemplateCode = "intel_recon"
)

// ParseTemplateCode decodes a template code.
func ParseTemplateCode(raw string) (TemplateCode, error) {
	return ParseEnum(raw, TemplateCourierRun, TemplateBodyguardEscort, TemplateNetrunSupport, TemplateSalvageSweep, TemplateIntelRecon)
}

// RatingRole distinguishes the two reputations every player carries.
type RatingRole string

const (
	RoleClient   RatingRole = "client"
	RoleExecutor RatingRole = "executor"
)

// ParseRatingRole decodes a rating role.
func ParseRatingRole(raw string) (RatingRole, error) {
	return ParseEnum(raw, RoleClient, RoleExecutor)
}

// ReviewStatus tracks a review through moderation.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusPublished ReviewStatus = "published"
	ReviewStatusHidden    ReviewStatus = "hidden"
	ReviewStatusDeleted   ReviewStatus = "deleted"
)

// ParseReviewStatus decodes a review status.
func ParseReviewStatus(raw string) (ReviewStatus, error) {
	return ParseEnum(raw, ReviewStatusPending, ReviewStatusPublished, ReviewStatusHidden, ReviewStatusDeleted)
}

// PenaltyStatus tracks a penalty's effect on live scores.
type PenaltyStatus string

const (
	PenaltyActive   PenaltyStatus = "active"
	PenaltyExpired  PenaltyStatus = "expired"
	PenaltyReversed PenaltyStatus = "reversed"
)

// ParsePenaltyStatus decodes a penalty status.
func ParsePenaltyStatus(raw string) (PenaltyStatus, error) {
	return ParseEnum(raw, PenaltyActive, PenaltyExpired, PenaltyReversed)
}

// PenaltyType names the cause of a penalty.
type PenaltyType string

const (
	PenaltyCancellation PenaltyType = "cancellation"
	PenaltyAbandonment  PenaltyType = "abandonment"
	PenaltyFraud        PenaltyType = "fraud"
	PenaltyConduct      PenaltyType = "conduct"
	PenaltySystem       PenaltyType = "system"
)

// ParsePenaltyType decodes a penalty type.
func ParsePenaltyType(raw string) (PenaltyType, error) {
	return ParseEnum(raw, PenaltyCancellation, PenaltyAbandonment, PenaltyFraud, PenaltyConduct, PenaltySystem)
}

// JobStatus tracks recalculation jobs. Transitions are strictly forward.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ParseJobStatus decodes a job status.
func ParseJobStatus(raw string) (JobStatus, error) {
	return ParseEnum(raw, JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled)
}

// Terminal reports whether a job can never change status again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// RatingCategory is the discrete reputation bucket derived from a score.
type RatingCategory string

const (
	CategoryBronze   RatingCategory = "bronze"
	CategorySilver   RatingCategory = "silver"
	CategoryGold     RatingCategory = "gold"
	CategoryPlatinum RatingCategory = "platinum"
)

// Rank orders categories from bronze (0) up to platinum (3).
func (c RatingCategory) Rank() int {
	switch c {
	case CategorySilver:
		return 1
	case CategoryGold:
		return 2
	case CategoryPlatinum:
		return 3
	}
	return 0
}
