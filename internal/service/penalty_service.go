package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
)

// cancellationPenaltyDelta is the fixed hit for cancelling an order that an
// executor already works on.
const cancellationPenaltyDelta = -10.0

type penaltyStore interface {
	Create(ctx context.Context, penalty *models.PlayerOrderPenalty) error
	GetByID(ctx context.Context, id string) (*models.PlayerOrderPenalty, error)
	ListByPlayer(ctx context.Context, playerID string, role models.RatingRole) ([]models.PlayerOrderPenalty, error)
	ExpireDue(ctx context.Context, now time.Time) ([]models.PlayerOrderPenalty, error)
	Reverse(ctx context.Context, id, reversedBy, note string) error
}

type penaltyRatingSink interface {
	ApplyPenalty(ctx context.Context, penalty *models.PlayerOrderPenalty) error
}

type recalcEnqueuer interface {
	EnqueueForPlayer(ctx context.Context, playerID string, role models.RatingRole, actorID string) error
}

type penaltyRosterGate interface {
	PlayerExists(ctx context.Context, playerID string) (bool, error)
	EligibleForRole(ctx context.Context, playerID string, role models.RatingRole) (bool, error)
}

// PenaltyService validates, applies, expires and reverses penalties. An
// applied penalty hits the live score immediately; expiry and reversal are
// repaired through recalculation, never by naive re-addition.
type PenaltyService struct {
	penalties penaltyStore
	ratings   penaltyRatingSink
	recalc    recalcEnqueuer
	roster    penaltyRosterGate
	cfg       config.PenaltiesConfig
	logger    *zap.Logger
}

// NewPenaltyService constructs the penalty service.
func NewPenaltyService(penalties penaltyStore, ratings penaltyRatingSink, recalc recalcEnqueuer, roster penaltyRosterGate, cfg config.PenaltiesConfig, logger *zap.Logger) *PenaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PenaltyService{penalties: penalties, ratings: ratings, recalc: recalc, roster: roster, cfg: cfg, logger: logger}
}

// Apply validates bounds, persists the penalty and folds it into the score.
func (s *PenaltyService) Apply(ctx context.Context, actorID string, req dto.ApplyPenaltyRequest) (*models.PlayerOrderPenalty, error) {
	role, err := models.ParseRatingRole(req.Role)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rating role")
	}
	penaltyType, err := models.ParsePenaltyType(req.Type)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown penalty type")
	}
	if req.Delta < -100 || req.Delta >= 0 {
		return nil, appErrors.Clone(appErrors.ErrPenaltyBounds, "penalty delta must be negative and at least -100")
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < s.cfg.MinReasonLength || len(reason) > s.cfg.MaxReasonLength {
		return nil, appErrors.Clone(appErrors.ErrPenaltyBounds, "penalty reason length is out of range")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "penalty expiry must be in the future")
	}
	exists, err := s.roster.PlayerExists(ctx, req.PlayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify player")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "player is not registered")
	}
	eligible, err := s.roster.EligibleForRole(ctx, req.PlayerID, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check player role")
	}
	if !eligible {
		return nil, appErrors.Clone(appErrors.ErrValidation, "player does not act in this role")
	}

	penalty := &models.PlayerOrderPenalty{
		PlayerID:      req.PlayerID,
		Role:          role,
		Type:          penaltyType,
		Delta:         req.Delta,
		Reason:        reason,
		AppliedBy:     actorID,
		ExpiresAt:     req.ExpiresAt,
		LinkedOrderID: req.LinkedOrderID,
	}
	if err := s.penalties.Create(ctx, penalty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store penalty")
	}
	if err := s.ratings.ApplyPenalty(ctx, penalty); err != nil {
		return nil, err
	}
	s.logger.Info("penalty applied",
		zap.String("penaltyId", penalty.ID),
		zap.String("playerId", penalty.PlayerID),
		zap.Float64("delta", penalty.Delta))
	return penalty, nil
}

// ApplyCancellation records the system penalty for cancelling an assigned
// order. Used by the publication state machine.
func (s *PenaltyService) ApplyCancellation(ctx context.Context, playerID string, role models.RatingRole, orderID, reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) < s.cfg.MinReasonLength {
		reason = "order cancelled after executor assignment"
	}
	penalty := &models.PlayerOrderPenalty{
		PlayerID:      playerID,
		Role:          role,
		Type:          models.PenaltyCancellation,
		Delta:         cancellationPenaltyDelta,
		Reason:        reason,
		AppliedBy:     "system",
		LinkedOrderID: &orderID,
	}
	if err := s.penalties.Create(ctx, penalty); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cancellation penalty")
	}
	return s.ratings.ApplyPenalty(ctx, penalty)
}

// Get loads one penalty.
func (s *PenaltyService) Get(ctx context.Context, id string) (*models.PlayerOrderPenalty, error) {
	penalty, err := s.penalties.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "penalty not found")
	}
	return penalty, nil
}

// List returns a player's penalty history in one role.
func (s *PenaltyService) List(ctx context.Context, playerID string, role models.RatingRole) ([]models.PlayerOrderPenalty, error) {
	penalties, err := s.penalties.ListByPlayer(ctx, playerID, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list penalties")
	}
	return penalties, nil
}

// Reverse marks a penalty reversed and queues a full recalculation for the
// player. The stored score is not patched in place: replaying the remaining
// log is the only way to stay consistent with later clamped updates.
func (s *PenaltyService) Reverse(ctx context.Context, id, actorID string, req dto.ReversePenaltyRequest) (*models.PlayerOrderPenalty, error) {
	if err := s.penalties.Reverse(ctx, id, actorID, req.Note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "penalty is missing or not active")
	}
	penalty, err := s.penalties.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload penalty")
	}
	if err := s.recalc.EnqueueForPlayer(ctx, penalty.PlayerID, penalty.Role, actorID); err != nil {
		s.logger.Error("failed to queue recalculation after reversal",
			zap.String("penaltyId", id), zap.Error(err))
	}
	return penalty, nil
}

// SweepExpired expires due penalties and queues recalculations for every
// affected player. Safe to run repeatedly.
func (s *PenaltyService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.penalties.ExpireDue(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire penalties")
	}
	for i := range expired {
		if err := s.recalc.EnqueueForPlayer(ctx, expired[i].PlayerID, expired[i].Role, "system"); err != nil {
			s.logger.Error("failed to queue recalculation after expiry",
				zap.String("penaltyId", expired[i].ID), zap.Error(err))
		}
	}
	return len(expired), nil
}

// StartSweep runs SweepExpired on a ticker until ctx is done.
func (s *PenaltyService) StartSweep(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.SweepExpired(ctx, time.Now().UTC()); err != nil {
					s.logger.Error("penalty sweep failed", zap.Error(err))
				} else if n > 0 {
					s.logger.Info("penalties expired", zap.Int("count", n))
				}
			}
		}
	}()
}
