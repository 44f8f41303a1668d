package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RecalcJobRepository persists recalculation job rows. The row is the source
// of truth for a job's progress; the in-memory queue only carries its id.
type RecalcJobRepository struct {
	db *sqlx.DB
}

// NewRecalcJobRepository creates a new recalc job repository.
func NewRecalcJobRepository(db *sqlx.DB) *RecalcJobRepository {
	return &RecalcJobRepository{db: db}
}

const recalcJobColumns = `id, scope, status, processed_count, failed_count, errors, result_url,
        created_by, created_at, started_at, finished_at`

// Create inserts a queued job.
func (r *RecalcJobRepository) Create(ctx context.Context, job *models.RecalcJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobStatusQueued
	job.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO recalc_jobs (id, scope, status, created_by, created_at)
        VALUES (:id, :scope, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create recalc job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (r *RecalcJobRepository) GetByID(ctx context.Context, id string) (*models.RecalcJob, error) {
	var job models.RecalcJob
	query := fmt.Sprintf(`SELECT %s FROM recalc_jobs WHERE id = $1`, recalcJobColumns)
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get recalc job: %w", err)
	}
	return &job, nil
}

// MarkRunning moves a queued job to running. Returns sql.ErrNoRows when the
// job was cancelled or picked up already.
func (r *RecalcJobRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE recalc_jobs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, models.JobStatusRunning, time.Now().UTC(), id, models.JobStatusQueued)
	if err != nil {
		return fmt.Errorf("mark recalc job running: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProgress stores batch counters and accumulated per-player errors.
func (r *RecalcJobRepository) UpdateProgress(ctx context.Context, id string, processed, failed int, errs models.JobErrors) error {
	const query = `UPDATE recalc_jobs SET processed_count = $1, failed_count = $2, errors = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, processed, failed, errs, id); err != nil {
		return fmt.Errorf("update recalc progress: %w", err)
	}
	return nil
}

// Finish moves a running job into a terminal state and records the optional
// drift report URL.
func (r *RecalcJobRepository) Finish(ctx context.Context, id string, status models.JobStatus, resultURL *string) error {
	const query = `UPDATE recalc_jobs SET status = $1, result_url = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, resultURL, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("finish recalc job: %w", err)
	}
	return nil
}

// RequestCancel flips a queued or running job to cancelled. Returns
// sql.ErrNoRows when the job is already terminal.
func (r *RecalcJobRepository) RequestCancel(ctx context.Context, id string) error {
	const query = `UPDATE recalc_jobs SET status = $1, finished_at = $2 WHERE id = $3 AND status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, models.JobStatusCancelled, time.Now().UTC(), id, models.JobStatusQueued, models.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("cancel recalc job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CurrentStatus reads just the status column. Workers poll it between
// batches to honor cancellation.
func (r *RecalcJobRepository) CurrentStatus(ctx context.Context, id string) (models.JobStatus, error) {
	var status models.JobStatus
	if err := r.db.GetContext(ctx, &status, `SELECT status FROM recalc_jobs WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("recalc job status: %w", err)
	}
	return status, nil
}

// ListUnfinished returns jobs stranded in a non-terminal state, used on boot
// to requeue work interrupted by a restart.
func (r *RecalcJobRepository) ListUnfinished(ctx context.Context) ([]models.RecalcJob, error) {
	var jobs []models.RecalcJob
	query := fmt.Sprintf(`SELECT %s FROM recalc_jobs WHERE status IN ($1, $2) ORDER BY created_at ASC`, recalcJobColumns)
	if err := r.db.SelectContext(ctx, &jobs, query, models.JobStatusQueued, models.JobStatusRunning); err != nil {
		return nil, fmt.Errorf("list unfinished recalc jobs: %w", err)
	}
	return jobs, nil
}

// List returns recent jobs newest first.
func (r *RecalcJobRepository) List(ctx context.Context, limit int) ([]models.RecalcJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.RecalcJob
	query := fmt.Sprintf(`SELECT %s FROM recalc_jobs ORDER BY created_at DESC LIMIT $1`, recalcJobColumns)
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list recalc jobs: %w", err)
	}
	return jobs, nil
}

// DeleteFinishedBefore removes terminal jobs older than the cutoff and
// returns their drift report URLs so stored files can be deleted too.
func (r *RecalcJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var urls []string
	const query = `DELETE FROM recalc_jobs
        WHERE finished_at IS NOT NULL AND finished_at < $1 AND status IN ($2, $3, $4)
        RETURNING COALESCE(result_url, '')`
	err := r.db.SelectContext(ctx, &urls, query, cutoff, models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("delete finished recalc jobs: %w", err)
	}
	return urls, nil
}
