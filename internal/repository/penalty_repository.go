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

// PenaltyRepository persists reputation penalties.
type PenaltyRepository struct {
	db *sqlx.DB
}

// NewPenaltyRepository creates a new penalty repository.
func NewPenaltyRepository(db *sqlx.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

const penaltyColumns = `id, player_id, role, penalty_type, delta, reason, applied_by, applied_at, expires_at,
        status, linked_order_id, reversed_by, reversal_note, reversed_at`

// Create inserts a new active penalty.
func (r *PenaltyRepository) Create(ctx context.Context, penalty *models.PlayerOrderPenalty) error {
	if penalty.ID == "" {
		penalty.ID = uuid.NewString()
	}
	penalty.AppliedAt = time.Now().UTC()
	penalty.Status = models.PenaltyActive
	const query = `INSERT INTO order_penalties (id, player_id, role, penalty_type, delta, reason, applied_by, applied_at, expires_at, status, linked_order_id)
        VALUES (:id, :player_id, :role, :penalty_type, :delta, :reason, :applied_by, :applied_at, :expires_at, :status, :linked_order_id)`
	if _, err := r.db.NamedExecContext(ctx, query, penalty); err != nil {
		return fmt.Errorf("create penalty: %w", err)
	}
	return nil
}

// GetByID loads one penalty.
func (r *PenaltyRepository) GetByID(ctx context.Context, id string) (*models.PlayerOrderPenalty, error) {
	var penalty models.PlayerOrderPenalty
	query := fmt.Sprintf(`SELECT %s FROM order_penalties WHERE id = $1`, penaltyColumns)
	if err := r.db.GetContext(ctx, &penalty, query, id); err != nil {
		return nil, fmt.Errorf("get penalty: %w", err)
	}
	return &penalty, nil
}

// ListByPlayer returns the full penalty history for a player and role,
// newest first.
func (r *PenaltyRepository) ListByPlayer(ctx context.Context, playerID string, role models.RatingRole) ([]models.PlayerOrderPenalty, error) {
	var penalties []models.PlayerOrderPenalty
	query := fmt.Sprintf(`SELECT %s FROM order_penalties WHERE player_id = $1 AND role = $2 ORDER BY applied_at DESC`, penaltyColumns)
	if err := r.db.SelectContext(ctx, &penalties, query, playerID, role); err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	return penalties, nil
}

// ListForReplay returns penalties that count toward a rating at the given
// instant: active and not yet expired, oldest first.
func (r *PenaltyRepository) ListForReplay(ctx context.Context, playerID string, role models.RatingRole, now time.Time) ([]models.PlayerOrderPenalty, error) {
	var penalties []models.PlayerOrderPenalty
	query := fmt.Sprintf(`SELECT %s FROM order_penalties
        WHERE player_id = $1 AND role = $2 AND status = $3 AND (expires_at IS NULL OR expires_at > $4)
        ORDER BY applied_at ASC`, penaltyColumns)
	if err := r.db.SelectContext(ctx, &penalties, query, playerID, role, models.PenaltyActive, now); err != nil {
		return nil, fmt.Errorf("list penalties for replay: %w", err)
	}
	return penalties, nil
}

// ExpireDue flips active penalties past their expiry to expired and returns
// the affected rows so the caller can trigger recalculations.
func (r *PenaltyRepository) ExpireDue(ctx context.Context, now time.Time) ([]models.PlayerOrderPenalty, error) {
	var expired []models.PlayerOrderPenalty
	query := fmt.Sprintf(`UPDATE order_penalties SET status = $1
        WHERE status = $2 AND expires_at IS NOT NULL AND expires_at <= $3
        RETURNING %s`, penaltyColumns)
	if err := r.db.SelectContext(ctx, &expired, query, models.PenaltyExpired, models.PenaltyActive, now); err != nil {
		return nil, fmt.Errorf("expire penalties: %w", err)
	}
	return expired, nil
}

// Reverse marks an active penalty reversed. Returns sql.ErrNoRows when the
// penalty is missing or no longer active.
func (r *PenaltyRepository) Reverse(ctx context.Context, id, reversedBy, note string) error {
	const query = `UPDATE order_penalties
        SET status = $1, reversed_by = $2, reversal_note = $3, reversed_at = $4
        WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, models.PenaltyReversed, reversedBy, note, time.Now().UTC(), id, models.PenaltyActive)
	if err != nil {
		return fmt.Errorf("reverse penalty: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
