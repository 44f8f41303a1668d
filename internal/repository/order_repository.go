package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/necpgame/player-orders-core/internal/models"
)

// OrderRepository persists order drafts and published orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const draftColumns = `id, owner_id, brief, status, validation_summary, budget, created_at, updated_at, last_validated_at`

// CreateDraft inserts a new draft owned by its creator.
func (r *OrderRepository) CreateDraft(ctx context.Context, draft *models.OrderDraft) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	const query = `INSERT INTO order_drafts (id, owner_id, brief, status, created_at, updated_at)
        VALUES (:id, :owner_id, :brief, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// GetDraft loads a draft by id.
func (r *OrderRepository) GetDraft(ctx context.Context, id string) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	query := fmt.Sprintf(`SELECT %s FROM order_drafts WHERE id = $1`, draftColumns)
	if err := r.db.GetContext(ctx, &draft, query, id); err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return &draft, nil
}

// UpdateDraft persists brief/status changes and refreshed validation state.
func (r *OrderRepository) UpdateDraft(ctx context.Context, draft *models.OrderDraft) error {
	draft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE order_drafts
        SET brief = :brief, status = :status, validation_summary = :validation_summary,
            budget = :budget, updated_at = :updated_at, last_validated_at = :last_validated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, draft)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListDraftsByOwner returns the owner's drafts newest first.
func (r *OrderRepository) ListDraftsByOwner(ctx context.Context, ownerID string) ([]models.OrderDraft, error) {
	var drafts []models.OrderDraft
	query := fmt.Sprintf(`SELECT %s FROM order_drafts WHERE owner_id = $1 ORDER BY updated_at DESC`, draftColumns)
	if err := r.db.SelectContext(ctx, &drafts, query, ownerID); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

const orderColumns = `id, owner_id, brief, status, escrow_state, executor_id, deadline, views, budget,
        publication, client_confirmed, executor_confirmed, manual_review, created_at, updated_at`

// CreatePublished converts a draft into a live order inside one transaction:
// the published row is inserted and the draft is marked consumed.
func (r *OrderRepository) CreatePublished(ctx context.Context, order *models.PublishedOrder) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO published_orders (id, owner_id, brief, status, escrow_state, executor_id, deadline,
            views, budget, publication, client_confirmed, executor_confirmed, manual_review, created_at, updated_at)
        VALUES (:id, :owner_id, :brief, :status, :escrow_state, :executor_id, :deadline,
            :views, :budget, :publication, :client_confirmed, :executor_confirmed, :manual_review, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, order); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert published order: %w", err)
	}
	const consume = `UPDATE order_drafts SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, consume, models.DraftStatusPublished, now, order.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("consume draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publication: %w", err)
	}
	return nil
}

// RevertPublication undoes a publication whose escrow lock was rejected: the
// order row is removed while still pending_lock and the draft returns to
// validated so the owner can retry.
func (r *OrderRepository) RevertPublication(ctx context.Context, orderID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const remove = `DELETE FROM published_orders WHERE id = $1 AND escrow_state = $2`
	if _, err := tx.ExecContext(ctx, remove, orderID, models.EscrowPendingLock); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("remove rejected publication: %w", err)
	}
	const restore = `UPDATE order_drafts SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, restore, models.DraftStatusValidated, time.Now().UTC(), orderID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("restore draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publication revert: %w", err)
	}
	return nil
}

// GetPublished loads a published order by id.
func (r *OrderRepository) GetPublished(ctx context.Context, id string) (*models.PublishedOrder, error) {
	var order models.PublishedOrder
	query := fmt.Sprintf(`SELECT %s FROM published_orders WHERE id = $1`, orderColumns)
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, fmt.Errorf("get published order: %w", err)
	}
	return &order, nil
}

// UpdatePublished persists the mutable lifecycle fields of an order.
func (r *OrderRepository) UpdatePublished(ctx context.Context, order *models.PublishedOrder) error {
	order.UpdatedAt = time.Now().UTC()
	const query = `UPDATE published_orders
        SET status = :status, escrow_state = :escrow_state, executor_id = :executor_id,
            publication = :publication, client_confirmed = :client_confirmed,
            executor_confirmed = :executor_confirmed, manual_review = :manual_review, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("update published order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignExecutor is a compare-and-set on the empty executor slot. It returns
// false when another executor already holds the order.
func (r *OrderRepository) AssignExecutor(ctx context.Context, orderID, executorID string) (bool, error) {
	const query = `UPDATE published_orders
        SET executor_id = $1, status = $2, updated_at = $3
        WHERE id = $4 AND executor_id IS NULL AND status = $5`
	res, err := r.db.ExecContext(ctx, query, executorID, models.OrderStatusInProgress, time.Now().UTC(), orderID, models.OrderStatusOpen)
	if err != nil {
		return false, fmt.Errorf("assign executor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign executor rows: %w", err)
	}
	return n == 1, nil
}

// ListExpiryCandidates returns non-terminal orders whose deadline has passed.
func (r *OrderRepository) ListExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]models.PublishedOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []models.PublishedOrder
	query := fmt.Sprintf(`SELECT %s FROM published_orders
        WHERE deadline IS NOT NULL AND deadline < $1 AND status IN ($2, $3)
        ORDER BY deadline ASC LIMIT $4`, orderColumns)
	err := r.db.SelectContext(ctx, &orders, query, now, models.OrderStatusOpen, models.OrderStatusInProgress, limit)
	if err != nil {
		return nil, fmt.Errorf("list expiry candidates: %w", err)
	}
	return orders, nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *OrderRepository) IncrementViews(ctx context.Context, orderID string) error {
	const query = `UPDATE published_orders SET views = views + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, orderID); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is the driver's empty-result sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
