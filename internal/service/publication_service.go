package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/clients"
	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/keymutex"
)

type publishedOrderStore interface {
	GetDraft(ctx context.Context, id string) (*models.OrderDraft, error)
	UpdateDraft(ctx context.Context, draft *models.OrderDraft) error
	CreatePublished(ctx context.Context, order *models.PublishedOrder) error
	GetPublished(ctx context.Context, id string) (*models.PublishedOrder, error)
	UpdatePublished(ctx context.Context, order *models.PublishedOrder) error
	AssignExecutor(ctx context.Context, orderID, executorID string) (bool, error)
	ListExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]models.PublishedOrder, error)
	IncrementViews(ctx context.Context, orderID string) error
	RevertPublication(ctx context.Context, orderID string) error
}

type lifecyclePublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderLifecycleEvent) error
}

type cancellationPenalizer interface {
	ApplyCancellation(ctx context.Context, playerID string, role models.RatingRole, orderID, reason string) error
}

// PublicationService owns the escrow and publication state machine. All
// order mutations run under a per-order mutex; economy calls never do, so a
// slow escrow backend cannot wedge the lock.
type PublicationService struct {
	orders    publishedOrderStore
	validator *DraftService
	economy   clients.EconomyClient
	roster    clients.RosterClient
	bus       lifecyclePublisher
	penalties cancellationPenalizer
	locks     *keymutex.KeyMutex
	cfg       config.EscrowConfig
	pricing   config.PricingConfig
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewPublicationService constructs the publication service. penalties may be
// nil when cancellation penalties are handled elsewhere.
func NewPublicationService(
	orders publishedOrderStore,
	validator *DraftService,
	economy clients.EconomyClient,
	roster clients.RosterClient,
	bus lifecyclePublisher,
	penalties cancellationPenalizer,
	cfg config.EscrowConfig,
	pricingCfg config.PricingConfig,
	metrics *MetricsService,
	logger *zap.Logger,
) *PublicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{
		orders:    orders,
		validator: validator,
		economy:   economy,
		roster:    roster,
		bus:       bus,
		penalties: penalties,
		locks:     keymutex.New(),
		cfg:       cfg,
		pricing:   pricingCfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Publish converts a validated draft into a live order. The order is created
// in pending_lock first so a crash between the insert and the economy call
// leaves a recoverable state, then escrow is locked with retries.
func (s *PublicationService) Publish(ctx context.Context, draftID, actorID string, req dto.PublishRequest) (*models.PublishedOrder, error) {
	draft, err := s.orders.GetDraft(ctx, draftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "draft not found")
	}
	if draft.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "draft belongs to another player")
	}
	if draft.Status != models.DraftStatusValidated {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "draft must be validated before publication")
	}
	now := time.Now().UTC()
	if !s.validator.ValidationFresh(draft, now) {
		return nil, appErrors.Clone(appErrors.ErrStaleValidation, "validation expired; validate the draft again")
	}
	if draft.Budget == nil {
		return nil, appErrors.Clone(appErrors.ErrStaleValidation, "draft has no budget estimate")
	}
	if draft.Budget.Escrow < s.pricing.MinEscrow || draft.Budget.Escrow > s.pricing.MaxEscrow {
		return nil, appErrors.Clone(appErrors.ErrValidation, "escrow amount is outside platform bounds")
	}
	visibility, err := models.ParseOrderVisibility(req.Visibility)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown visibility")
	}
	if visibility == models.VisibilityInviteOnly && len(req.Invited) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invite-only orders need at least one invitee")
	}
	guarantee := draft.Brief.GuaranteeTier
	if req.GuaranteeTier != nil {
		guarantee, err = models.ParseGuaranteeTier(*req.GuaranteeTier)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown guarantee tier")
		}
	}

	order := &models.PublishedOrder{
		ID:          draft.ID,
		OwnerID:     draft.OwnerID,
		Brief:       draft.Brief,
		Status:      models.OrderStatusOpen,
		EscrowState: models.EscrowPendingLock,
		Deadline:    draft.Brief.Deadline,
		Budget:      *draft.Budget,
		Publication: models.PublicationInfo{
			PublishedAt:   now,
			PublishToken:  uuid.NewString(),
			Visibility:    visibility,
			Invited:       req.Invited,
			GuaranteeTier: guarantee,
		},
	}
	if err := s.orders.CreatePublished(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish order")
	}

	outcome, err := s.callEscrow(ctx, "lock", func(callCtx context.Context) (clients.LockOutcome, error) {
		return s.economy.LockEscrow(callCtx, order.ID, order.Budget.Escrow, idempotencyKey(order.ID, "lock"))
	})
	switch {
	case err != nil:
		s.flagManualReview(ctx, order, "escrow lock kept failing")
		return nil, appErrors.Wrap(err, appErrors.ErrEscrowFailed.Code, appErrors.ErrEscrowFailed.Status, "escrow lock failed; order flagged for manual review")
	case outcome == clients.LockRejected:
		// A rejection means no funds were held. The draft goes back to
		// validated so the owner can fix the budget and retry.
		s.mu(order.ID, func() {
			if rerr := s.orders.RevertPublication(ctx, order.ID); rerr != nil {
				s.logger.Error("failed to revert rejected publication", zap.String("orderId", order.ID), zap.Error(rerr))
			}
		})
		return nil, appErrors.Clone(appErrors.ErrEscrowFailed, "economy service rejected the escrow lock")
	}

	s.mu(order.ID, func() {
		order.EscrowState = models.EscrowLocked
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			s.logger.Error("failed to record escrow lock", zap.String("orderId", order.ID), zap.Error(uerr))
		}
	})

	s.metrics.OrderPublished()
	s.emit(ctx, models.OrderEventPublished, order)
	s.logger.Info("order published",
		zap.String("orderId", order.ID),
		zap.Float64("escrow", order.Budget.Escrow),
		zap.String("visibility", string(visibility)))
	return order, nil
}

// Get loads a published order and counts the view.
func (s *PublicationService) Get(ctx context.Context, orderID string) (*models.PublishedOrder, error) {
	order, err := s.orders.GetPublished(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
	}
	if err := s.orders.IncrementViews(ctx, orderID); err != nil {
		s.logger.Warn("failed to count view", zap.String("orderId", orderID), zap.Error(err))
	}
	return order, nil
}

// Accept assigns an executor to an open order. The slot is claimed with a
// compare-and-set so two racing executors cannot both win.
func (s *PublicationService) Accept(ctx context.Context, orderID string, req dto.AcceptRequest) (*models.PublishedOrder, error) {
	order, err := s.orders.GetPublished(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
	}
	if req.ExecutorID == order.OwnerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "owners cannot execute their own orders")
	}
	if order.Status != models.OrderStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "order is not open for executors")
	}
	if order.EscrowState != models.EscrowLocked {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "order funds are not locked yet")
	}
	if order.Publication.Visibility == models.VisibilityInviteOnly && !contains(order.Publication.Invited, req.ExecutorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "order is invite-only")
	}
	eligible, err := s.roster.EligibleForRole(ctx, req.ExecutorID, models.RoleExecutor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check executor eligibility")
	}
	if !eligible {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "executor is not eligible for this order")
	}

	assigned, err := s.orders.AssignExecutor(ctx, orderID, req.ExecutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign executor")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrExecutorTaken, "another executor claimed this order first")
	}

	order, err = s.orders.GetPublished(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload order")
	}
	s.emit(ctx, models.OrderEventAssigned, order)
	return order, nil
}

// ConfirmCompletion records one party's confirmation. When both parties have
// confirmed the order completes and escrow is released to the executor.
func (s *PublicationService) ConfirmCompletion(ctx context.Context, orderID string, req dto.ConfirmRequest) (*models.PublishedOrder, error) {
	var (
		order      *models.PublishedOrder
		bothAgree  bool
		confirmErr error
	)
	s.mu(orderID, func() {
		order, confirmErr = s.orders.GetPublished(ctx, orderID)
		if confirmErr != nil {
			confirmErr = appErrors.Wrap(confirmErr, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
			return
		}
		if order.Status != models.OrderStatusInProgress {
			confirmErr = appErrors.Clone(appErrors.ErrStateTransition, "only in-progress orders can be confirmed")
			return
		}
		switch {
		case req.PartyID == order.OwnerID:
			order.ClientConfirmed = true
		case order.ExecutorID != nil && req.PartyID == *order.ExecutorID:
			order.ExecutorConfirmed = true
		default:
			confirmErr = appErrors.Clone(appErrors.ErrForbidden, "only order participants can confirm completion")
			return
		}
		bothAgree = order.ClientConfirmed && order.ExecutorConfirmed
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			confirmErr = appErrors.Wrap(uerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store confirmation")
		}
	})
	if confirmErr != nil {
		return nil, confirmErr
	}
	if !bothAgree {
		return order, nil
	}

	if err := s.settleCompletion(ctx, order); err != nil {
		return nil, err
	}
	s.emit(ctx, models.OrderEventCompleted, order)
	s.logger.Info("order completed", zap.String("orderId", order.ID))
	return order, nil
}

// CompleteByPolicy force-completes an in-progress order on behalf of the
// platform timeout policy: both confirmations are recorded and escrow is
// released as if the parties had agreed.
func (s *PublicationService) CompleteByPolicy(ctx context.Context, orderID string) (*models.PublishedOrder, error) {
	var (
		order       *models.PublishedOrder
		completeErr error
	)
	s.mu(orderID, func() {
		order, completeErr = s.orders.GetPublished(ctx, orderID)
		if completeErr != nil {
			completeErr = appErrors.Wrap(completeErr, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
			return
		}
		if order.Status != models.OrderStatusInProgress {
			completeErr = appErrors.Clone(appErrors.ErrStateTransition, "only in-progress orders can be completed")
			return
		}
		order.ClientConfirmed = true
		order.ExecutorConfirmed = true
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			completeErr = appErrors.Wrap(uerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store completion")
		}
	})
	if completeErr != nil {
		return nil, completeErr
	}

	if err := s.settleCompletion(ctx, order); err != nil {
		return nil, err
	}
	s.emit(ctx, models.OrderEventCompleted, order)
	s.logger.Info("order completed by policy", zap.String("orderId", order.ID))
	return order, nil
}

// Cancel refunds escrow and closes the order. Owners may cancel while the
// order is open for free; cancelling an assigned order costs reputation.
func (s *PublicationService) Cancel(ctx context.Context, orderID, actorID string, req dto.CancelRequest) (*models.PublishedOrder, error) {
	var (
		order      *models.PublishedOrder
		wasWorking bool
		cancelErr  error
	)
	s.mu(orderID, func() {
		order, cancelErr = s.orders.GetPublished(ctx, orderID)
		if cancelErr != nil {
			cancelErr = appErrors.Wrap(cancelErr, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
			return
		}
		if actorID != order.OwnerID {
			cancelErr = appErrors.Clone(appErrors.ErrForbidden, "only the owner can cancel an order")
			return
		}
		if order.Status.Terminal() {
			cancelErr = appErrors.Clone(appErrors.ErrStateTransition, "order is already closed")
			return
		}
		wasWorking = order.Status == models.OrderStatusInProgress
	})
	if cancelErr != nil {
		return nil, cancelErr
	}

	if err := s.settleRefund(ctx, order, models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if wasWorking && s.penalties != nil {
		if perr := s.penalties.ApplyCancellation(ctx, order.OwnerID, models.RoleClient, order.ID, req.Reason); perr != nil {
			s.logger.Error("failed to apply cancellation penalty", zap.String("orderId", order.ID), zap.Error(perr))
		}
	}
	s.emit(ctx, models.OrderEventCancelled, order)
	return order, nil
}

// ExpireDue sweeps orders past their deadline. Safe to run concurrently and
// repeatedly: terminal orders are skipped and refunds are idempotent.
func (s *PublicationService) ExpireDue(ctx context.Context, now time.Time, limit int) (dto.ExpirySweepResponse, error) {
	candidates, err := s.orders.ListExpiryCandidates(ctx, now, limit)
	if err != nil {
		return dto.ExpirySweepResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired orders")
	}

	var result dto.ExpirySweepResponse
	for i := range candidates {
		order := &candidates[i]
		live := false
		s.mu(order.ID, func() {
			current, gerr := s.orders.GetPublished(ctx, order.ID)
			if gerr != nil || current.Status.Terminal() {
				return
			}
			*order = *current
			live = true
		})
		if !live {
			continue
		}
		if err := s.settleRefund(ctx, order, models.OrderStatusExpired); err != nil {
			s.logger.Error("failed to expire order", zap.String("orderId", order.ID), zap.Error(err))
			continue
		}
		result.Expired++
		if order.EscrowState == models.EscrowRefunded {
			result.Refunded++
		}
		s.emit(ctx, models.OrderEventExpired, order)
	}
	return result, nil
}

// StartExpirySweep runs ExpireDue on a ticker until ctx is done.
func (s *PublicationService) StartExpirySweep(ctx context.Context, interval time.Duration, batch int) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ExpireDue(ctx, time.Now().UTC(), batch); err != nil {
					s.logger.Error("expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// settleCompletion pays the executor and only then commits COMPLETED. When
// the release exhausts its retries the order keeps its last stable state and
// is handed to manual review instead.
func (s *PublicationService) settleCompletion(ctx context.Context, order *models.PublishedOrder) error {
	releasing := order.EscrowState.CanTransitionTo(models.EscrowReleased)
	if releasing {
		_, err := s.callEscrow(ctx, "release", func(callCtx context.Context) (clients.LockOutcome, error) {
			return "", s.economy.ReleaseEscrow(callCtx, order.ID, idempotencyKey(order.ID, "release"))
		})
		if err != nil {
			s.flagManualReview(ctx, order, "escrow release kept failing")
			return appErrors.Wrap(err, appErrors.ErrEscrowFailed.Code, appErrors.ErrEscrowFailed.Status, "escrow release failed; order flagged for manual review")
		}
	}
	s.mu(order.ID, func() {
		order.Status = models.OrderStatusCompleted
		if releasing {
			order.EscrowState = models.EscrowReleased
		}
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			s.logger.Error("failed to record completion", zap.String("orderId", order.ID), zap.Error(uerr))
		}
	})
	return nil
}

// settleRefund returns funds to the owner and only then commits the terminal
// status. Settled escrow skips the economy call, which keeps cancellation
// and expiry sweeps idempotent.
func (s *PublicationService) settleRefund(ctx context.Context, order *models.PublishedOrder, terminal models.OrderStatus) error {
	refunding := order.EscrowState.CanTransitionTo(models.EscrowRefunded)
	if refunding {
		_, err := s.callEscrow(ctx, "refund", func(callCtx context.Context) (clients.LockOutcome, error) {
			return "", s.economy.RefundEscrow(callCtx, order.ID, idempotencyKey(order.ID, "refund"))
		})
		if err != nil {
			s.flagManualReview(ctx, order, "escrow refund kept failing")
			return appErrors.Wrap(err, appErrors.ErrEscrowFailed.Code, appErrors.ErrEscrowFailed.Status, "escrow refund failed; order flagged for manual review")
		}
	}
	s.mu(order.ID, func() {
		order.Status = terminal
		if refunding {
			order.EscrowState = models.EscrowRefunded
		}
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			s.logger.Error("failed to record refund", zap.String("orderId", order.ID), zap.Error(uerr))
		}
	})
	return nil
}

// callEscrow wraps an economy call in exponential backoff with a per-attempt
// timeout. A rejected lock is a definitive answer, not a retryable failure.
func (s *PublicationService) callEscrow(ctx context.Context, op string, call func(context.Context) (clients.LockOutcome, error)) (clients.LockOutcome, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialInterval
	policy.MaxInterval = s.cfg.MaxInterval

	var outcome clients.LockOutcome
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
		var err error
		outcome, err = call(callCtx)
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries)), ctx))
	if err != nil {
		s.metrics.EscrowOperation(op, "error")
		s.logger.Error("escrow call exhausted retries", zap.String("op", op), zap.Error(err))
		return outcome, fmt.Errorf("escrow %s: %w", op, err)
	}
	label := string(outcome)
	if label == "" {
		label = "ok"
	}
	s.metrics.EscrowOperation(op, label)
	return outcome, nil
}

func (s *PublicationService) flagManualReview(ctx context.Context, order *models.PublishedOrder, reason string) {
	s.mu(order.ID, func() {
		order.ManualReview = true
		if uerr := s.orders.UpdatePublished(ctx, order); uerr != nil {
			s.logger.Error("failed to flag manual review", zap.String("orderId", order.ID), zap.Error(uerr))
		}
	})
	s.logger.Warn("order flagged for manual review", zap.String("orderId", order.ID), zap.String("reason", reason))
}

func (s *PublicationService) emit(ctx context.Context, eventType models.OrderEventType, order *models.PublishedOrder) {
	if s.bus == nil {
		return
	}
	event := models.OrderLifecycleEvent{
		Type:       eventType,
		OrderID:    order.ID,
		OwnerID:    order.OwnerID,
		ExecutorID: order.ExecutorID,
		Status:     order.Status,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.bus.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish lifecycle event", zap.String("orderId", order.ID), zap.Error(err))
	}
}

func (s *PublicationService) mu(orderID string, fn func()) {
	key := "order:" + orderID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	fn()
}

func idempotencyKey(orderID, purpose string) string {
	return orderID + ":" + purpose
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
