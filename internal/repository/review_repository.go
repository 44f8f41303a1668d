package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/necpgame/player-orders-core/internal/models"
)

// ErrDuplicateReview marks a violated (order_id, reviewer_id, target_id)
// uniqueness constraint.
var ErrDuplicateReview = fmt.Errorf("review already exists for this order and pair")

// ReviewRepository persists order reviews. Rows are append-only; only the
// moderation status and sentiment fields change after insert.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, order_id, reviewer_id, target_id, role, ratings, text, flags, status,
        sentiment_score, created_at, updated_at`

// Create inserts a review. A unique index on (order_id, reviewer_id,
// target_id) enforces one review per pair per order.
func (r *ReviewRepository) Create(ctx context.Context, review *models.PlayerOrderReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO order_reviews (id, order_id, reviewer_id, target_id, role, ratings, text, flags, status, created_at)
        VALUES (:id, :order_id, :reviewer_id, :target_id, :role, :ratings, :text, :flags, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// GetByID loads one review.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.PlayerOrderReview, error) {
	var review models.PlayerOrderReview
	query := fmt.Sprintf(`SELECT %s FROM order_reviews WHERE id = $1`, reviewColumns)
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &review, nil
}

// UpdateStatus records a moderation decision.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	const query = `UPDATE order_reviews SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	return nil
}

// ListByOrder returns the published reviews attached to an order.
func (r *ReviewRepository) ListByOrder(ctx context.Context, orderID string) ([]models.PlayerOrderReview, error) {
	var reviews []models.PlayerOrderReview
	query := fmt.Sprintf(`SELECT %s FROM order_reviews WHERE order_id = $1 AND status = $2 ORDER BY created_at ASC`, reviewColumns)
	if err := r.db.SelectContext(ctx, &reviews, query, orderID, models.ReviewStatusPublished); err != nil {
		return nil, fmt.Errorf("list reviews by order: %w", err)
	}
	return reviews, nil
}

// ListForReplay returns every published review counting toward a player's
// rating in one role, ordered by creation time so replays are deterministic.
func (r *ReviewRepository) ListForReplay(ctx context.Context, targetID string, role models.RatingRole) ([]models.PlayerOrderReview, error) {
	var reviews []models.PlayerOrderReview
	query := fmt.Sprintf(`SELECT %s FROM order_reviews
        WHERE target_id = $1 AND role = $2 AND status = $3
        ORDER BY created_at ASC`, reviewColumns)
	if err := r.db.SelectContext(ctx, &reviews, query, targetID, role, models.ReviewStatusPublished); err != nil {
		return nil, fmt.Errorf("list reviews for replay: %w", err)
	}
	return reviews, nil
}

// Exists reports whether the reviewer already reviewed the target on this order.
func (r *ReviewRepository) Exists(ctx context.Context, orderID, reviewerID, targetID string) (bool, error) {
	var count int
	const query = `SELECT COUNT(1) FROM order_reviews WHERE order_id = $1 AND reviewer_id = $2 AND target_id = $3`
	if err := r.db.GetContext(ctx, &count, query, orderID, reviewerID, targetID); err != nil {
		return false, fmt.Errorf("review exists: %w", err)
	}
	return count > 0, nil
}
