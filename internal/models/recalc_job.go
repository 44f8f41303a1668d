package models

import (
	"database/sql/driver"
	"time"
)

// RecalcScope selects the population a recalculation job replays.
// An empty PlayerID with a nil Role means every rated (player, role) pair.
type RecalcScope struct {
	PlayerID string      `json:"player_id,omitempty"`
	Role     *RatingRole `json:"role,omitempty"`
	DryRun   bool        `json:"dry_run"`
}

// Value marshals the scope for persistence.
func (s RecalcScope) Value() (driver.Value, error) { return jsonbValue(s) }

// Scan unmarshals a JSONB scope.
func (s *RecalcScope) Scan(value interface{}) error { return jsonbScan(value, s) }

// JobError records one player's replay failure inside a job.
type JobError struct {
	PlayerID string     `json:"player_id"`
	Role     RatingRole `json:"role"`
	Message  string     `json:"message"`
}

// JobErrors is the errors column payload.
type JobErrors []JobError

// Value marshals job errors for persistence.
func (e JobErrors) Value() (driver.Value, error) { return jsonbValue(e) }

// Scan unmarshals JSONB job errors.
func (e *JobErrors) Scan(value interface{}) error { return jsonbScan(value, e) }

// RecalcJob is a persisted rating recalculation job. Status transitions are
// strictly forward; a terminal job is never resurrected.
type RecalcJob struct {
	ID             string      `db:"id" json:"id"`
	Scope          RecalcScope `db:"scope" json:"scope"`
	Status         JobStatus   `db:"status" json:"status"`
	ProcessedCount int         `db:"processed_count" json:"processed_count"`
	FailedCount    int         `db:"failed_count" json:"failed_count"`
	Errors         JobErrors   `db:"errors" json:"errors,omitempty"`
	ResultURL      *string     `db:"result_url" json:"result_url,omitempty"`
	CreatedBy      string      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	StartedAt      *time.Time  `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time  `db:"finished_at" json:"finished_at,omitempty"`
}
