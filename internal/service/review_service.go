package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/repository"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
)

// Flags that hold a review in moderation instead of publishing it directly.
var moderationFlags = map[string]struct{}{
	"abusive":    {},
	"spam":       {},
	"collusion":  {},
	"extortion":  {},
	"harassment": {},
}

type reviewStore interface {
	Create(ctx context.Context, review *models.PlayerOrderReview) error
	GetByID(ctx context.Context, id string) (*models.PlayerOrderReview, error)
	UpdateStatus(ctx context.Context, id string, status models.ReviewStatus) error
	ListByOrder(ctx context.Context, orderID string) ([]models.PlayerOrderReview, error)
	Exists(ctx context.Context, orderID, reviewerID, targetID string) (bool, error)
}

type reviewedOrderSource interface {
	GetPublished(ctx context.Context, id string) (*models.PublishedOrder, error)
}

type reviewRatingSink interface {
	ApplyReview(ctx context.Context, review *models.PlayerOrderReview) error
}

// ReviewService ingests reviews over completed orders and pipes published
// ones into the reputation engine.
type ReviewService struct {
	reviews reviewStore
	orders  reviewedOrderSource
	ratings reviewRatingSink
	recalc  recalcEnqueuer
	logger  *zap.Logger
}

// NewReviewService constructs the review service.
func NewReviewService(reviews reviewStore, orders reviewedOrderSource, ratings reviewRatingSink, recalc recalcEnqueuer, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, orders: orders, ratings: ratings, recalc: recalc, logger: logger}
}

// Submit files a review on a completed order. Reviewer and target must be
// the two participants; the rated role is the one the target played. Flagged
// reviews park in moderation and do not touch the score until published.
func (s *ReviewService) Submit(ctx context.Context, orderID string, req dto.CreateReviewRequest) (*models.PlayerOrderReview, error) {
	order, err := s.orders.GetPublished(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "order not found")
	}
	if order.Status != models.OrderStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "only completed orders can be reviewed")
	}
	role, err := s.participantRole(order, req.ReviewerID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if exists, eerr := s.reviews.Exists(ctx, orderID, req.ReviewerID, req.TargetID); eerr != nil {
		return nil, appErrors.Wrap(eerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing review")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrReviewDuplicate, "")
	}

	status := models.ReviewStatusPublished
	if s.needsModeration(req) {
		status = models.ReviewStatusPending
	}
	review := &models.PlayerOrderReview{
		OrderID:    orderID,
		ReviewerID: req.ReviewerID,
		TargetID:   req.TargetID,
		Role:       role,
		Ratings: models.ReviewRatings{
			Overall:         req.Ratings.Overall,
			Communication:   req.Ratings.Communication,
			Professionalism: req.Ratings.Professionalism,
			Timeliness:      req.Ratings.Timeliness,
		},
		Text:   strings.TrimSpace(req.Text),
		Flags:  req.Flags,
		Status: status,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, appErrors.Clone(appErrors.ErrReviewDuplicate, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}

	if review.Status == models.ReviewStatusPublished {
		if err := s.ratings.ApplyReview(ctx, review); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("review held for moderation", zap.String("reviewId", review.ID), zap.Strings("flags", review.Flags))
	}
	return review, nil
}

// Moderate applies a moderation verdict. Publishing a pending review feeds
// it into the score; hiding or deleting an already-published one queues a
// recalculation so its effect is replayed out.
func (s *ReviewService) Moderate(ctx context.Context, reviewID, actorID string, req dto.ModerateReviewRequest) (*models.PlayerOrderReview, error) {
	status, err := models.ParseReviewStatus(req.Status)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review status")
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "review not found")
	}
	if review.Status == status {
		return review, nil
	}
	if review.Status == models.ReviewStatusDeleted {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "deleted reviews cannot be moderated")
	}

	wasPublished := review.Status == models.ReviewStatusPublished
	if err := s.reviews.UpdateStatus(ctx, reviewID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review status")
	}
	review.Status = status

	switch {
	case !wasPublished && status == models.ReviewStatusPublished:
		if err := s.ratings.ApplyReview(ctx, review); err != nil {
			return nil, err
		}
	case wasPublished && status != models.ReviewStatusPublished:
		if err := s.recalc.EnqueueForPlayer(ctx, review.TargetID, review.Role, actorID); err != nil {
			s.logger.Error("failed to queue recalculation after review takedown",
				zap.String("reviewId", reviewID), zap.Error(err))
		}
	}
	return review, nil
}

// ListByOrder returns the published reviews of an order.
func (s *ReviewService) ListByOrder(ctx context.Context, orderID string) ([]models.PlayerOrderReview, error) {
	reviews, err := s.reviews.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// participantRole checks both ids belong to the order and returns the role
// the target played in it.
func (s *ReviewService) participantRole(order *models.PublishedOrder, reviewerID, targetID string) (models.RatingRole, error) {
	if !order.Assigned() {
		return "", appErrors.Clone(appErrors.ErrStateTransition, "order has no executor to review")
	}
	executorID := *order.ExecutorID
	participants := map[string]struct{}{order.OwnerID: {}, executorID: {}}
	if _, ok := participants[reviewerID]; !ok {
		return "", appErrors.Clone(appErrors.ErrForbidden, "reviewer did not participate in this order")
	}
	if _, ok := participants[targetID]; !ok {
		return "", appErrors.Clone(appErrors.ErrForbidden, "target did not participate in this order")
	}
	if reviewerID == targetID {
		return "", appErrors.Clone(appErrors.ErrValidation, "players cannot review themselves")
	}
	if targetID == order.OwnerID {
		return models.RoleClient, nil
	}
	return models.RoleExecutor, nil
}

func (s *ReviewService) needsModeration(req dto.CreateReviewRequest) bool {
	for _, flag := range req.Flags {
		if _, hit := moderationFlags[strings.ToLower(strings.TrimSpace(flag))]; hit {
			return true
		}
	}
	return false
}
