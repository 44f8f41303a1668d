package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RatingRepository persists per-player, per-role rating aggregates and the
// append-only event trail behind them.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

const ratingColumns = `player_id, role, score, decay_applied, trend, completed_orders, metrics,
        warnings, season_stats, updated_at`

// Get loads one aggregate.
func (r *RatingRepository) Get(ctx context.Context, playerID string, role models.RatingRole) (*models.PlayerOrderRating, error) {
	var rating models.PlayerOrderRating
	query := fmt.Sprintf(`SELECT %s FROM order_ratings WHERE player_id = $1 AND role = $2`, ratingColumns)
	if err := r.db.GetContext(ctx, &rating, query, playerID, role); err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rating, nil
}

// Upsert writes the aggregate, creating it on first touch.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.PlayerOrderRating) error {
	rating.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO order_ratings (player_id, role, score, decay_applied, trend, completed_orders, metrics, warnings, season_stats, updated_at)
        VALUES (:player_id, :role, :score, :decay_applied, :trend, :completed_orders, :metrics, :warnings, :season_stats, :updated_at)
        ON CONFLICT (player_id, role) DO UPDATE
        SET score = EXCLUDED.score, decay_applied = EXCLUDED.decay_applied, trend = EXCLUDED.trend,
            completed_orders = EXCLUDED.completed_orders, metrics = EXCLUDED.metrics,
            warnings = EXCLUDED.warnings, season_stats = EXCLUDED.season_stats, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// AppendEvent records one score change in the event trail.
func (r *RatingRepository) AppendEvent(ctx context.Context, event *models.RatingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO rating_events (id, player_id, role, source, delta, score_after, occurred_at)
        VALUES (:id, :player_id, :role, :source, :delta, :score_after, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("append rating event: %w", err)
	}
	return nil
}

// RecentEvents returns the latest score changes for a player and role,
// newest first, bounded by limit.
func (r *RatingRepository) RecentEvents(ctx context.Context, playerID string, role models.RatingRole, limit int) ([]models.RatingEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	var events []models.RatingEvent
	const query = `SELECT id, player_id, role, source, delta, score_after, occurred_at
        FROM rating_events WHERE player_id = $1 AND role = $2
        ORDER BY occurred_at DESC, id DESC LIMIT $3`
	if err := r.db.SelectContext(ctx, &events, query, playerID, role, limit); err != nil {
		return nil, fmt.Errorf("recent rating events: %w", err)
	}
	return events, nil
}

// RatingKey identifies one aggregate for batch enumeration.
type RatingKey struct {
	PlayerID string            `db:"player_id"`
	Role     models.RatingRole `db:"role"`
}

// ListKeys pages through all (player, role) aggregates in a stable order so
// recalculation jobs can walk the table in batches.
func (r *RatingRepository) ListKeys(ctx context.Context, offset, limit int) ([]RatingKey, error) {
	var keys []RatingKey
	const query = `SELECT player_id, role FROM order_ratings ORDER BY player_id, role LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &keys, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list rating keys: %w", err)
	}
	return keys, nil
}

// CountKeys returns the total number of aggregates.
func (r *RatingRepository) CountKeys(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM order_ratings`); err != nil {
		return 0, fmt.Errorf("count rating keys: %w", err)
	}
	return count, nil
}

// CompletedOrderCount counts released orders where the player acted in the
// given role. Feeds the review weight dampening.
func (r *RatingRepository) CompletedOrderCount(ctx context.Context, playerID string, role models.RatingRole) (int, error) {
	var column string
	switch role {
	case models.RoleClient:
		column = "owner_id"
	default:
		column = "executor_id"
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(1) FROM published_orders WHERE %s = $1 AND status = $2`, column)
	if err := r.db.GetContext(ctx, &count, query, playerID, models.OrderStatusCompleted); err != nil {
		return 0, fmt.Errorf("completed order count: %w", err)
	}
	return count, nil
}
