package models

import "time"

// RatingUpdatedEvent is published on the bus after every committed score
// change so downstream consumers (feed, notifications) can react.
type RatingUpdatedEvent struct {
	PlayerID         string            `json:"player_id"`
	Role             RatingRole        `json:"role"`
	PreviousScore    float64           `json:"previous_score"`
	NewScore         float64           `json:"new_score"`
	PreviousCategory RatingCategory    `json:"previous_category"`
	NewCategory      RatingCategory    `json:"new_category"`
	Source           RatingEventSource `json:"source"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

// OrderEventType names order lifecycle notifications.
type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventPublished OrderEventType = "order.published"
	OrderEventAssigned  OrderEventType = "order.assigned"
	OrderEventCompleted OrderEventType = "order.completed"
	OrderEventCancelled OrderEventType = "order.cancelled"
	OrderEventExpired   OrderEventType = "order.expired"
)

// OrderLifecycleEvent is published on the bus at each lifecycle milestone.
type OrderLifecycleEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"order_id"`
	OwnerID    string         `json:"owner_id"`
	ExecutorID *string        `json:"executor_id,omitempty"`
	Status     OrderStatus    `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
