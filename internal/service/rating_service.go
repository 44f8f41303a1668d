package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/repository"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/keymutex"
)

// initialScore is the neutral reputation every player starts from.
const initialScore = 50.0

type ratingStore interface {
	Get(ctx context.Context, playerID string, role models.RatingRole) (*models.PlayerOrderRating, error)
	Upsert(ctx context.Context, rating *models.PlayerOrderRating) error
	AppendEvent(ctx context.Context, event *models.RatingEvent) error
	RecentEvents(ctx context.Context, playerID string, role models.RatingRole, limit int) ([]models.RatingEvent, error)
	CompletedOrderCount(ctx context.Context, playerID string, role models.RatingRole) (int, error)
}

type reviewReplaySource interface {
	ListForReplay(ctx context.Context, targetID string, role models.RatingRole) ([]models.PlayerOrderReview, error)
}

type penaltyReplaySource interface {
	ListForReplay(ctx context.Context, playerID string, role models.RatingRole, now time.Time) ([]models.PlayerOrderPenalty, error)
}

type ratingEventPublisher interface {
	PublishRatingUpdated(ctx context.Context, event models.RatingUpdatedEvent) error
}

// RatingService is the reputation engine. Scores live in [0, 100], move by
// weighted deltas, and are always reproducible by replaying the review and
// penalty logs through Replay.
type RatingService struct {
	ratings   ratingStore
	reviews   reviewReplaySource
	penalties penaltyReplaySource
	bus       ratingEventPublisher
	locks     *keymutex.KeyMutex
	cfg       config.ReputationConfig
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRatingService constructs the rating service.
func NewRatingService(ratings ratingStore, reviews reviewReplaySource, penalties penaltyReplaySource, bus ratingEventPublisher, cfg config.ReputationConfig, metrics *MetricsService, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		ratings:   ratings,
		reviews:   reviews,
		penalties: penalties,
		bus:       bus,
		locks:     keymutex.New(),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Thresholds exposes the configured tier boundaries.
func (s *RatingService) Thresholds() models.RatingThresholds {
	return models.RatingThresholds{
		BronzeUpper: s.cfg.BronzeUpper,
		SilverUpper: s.cfg.SilverUpper,
		GoldUpper:   s.cfg.GoldUpper,
	}
}

// Get returns the aggregate for one player and role, materializing the
// neutral default for players who have no history yet.
func (s *RatingService) Get(ctx context.Context, playerID string, role models.RatingRole) (*models.PlayerOrderRating, error) {
	rating, err := s.ratings.Get(ctx, playerID, role)
	if err != nil {
		if repository.IsNotFound(err) {
			return s.blank(playerID, role), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	return rating, nil
}

// History returns the trailing event window.
func (s *RatingService) History(ctx context.Context, playerID string, role models.RatingRole) ([]models.RatingEvent, error) {
	events, err := s.ratings.RecentEvents(ctx, playerID, role, s.cfg.TrendWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating history")
	}
	return events, nil
}

// ApplyReview folds one published review into the target's score. The review
// weight shrinks as the target completes more orders, so a single review
// moves a veteran far less than a newcomer.
func (s *RatingService) ApplyReview(ctx context.Context, review *models.PlayerOrderReview) error {
	return s.withLock(ctx, review.TargetID, review.Role, func(rating *models.PlayerOrderRating) error {
		completed, err := s.ratings.CompletedOrderCount(ctx, review.TargetID, review.Role)
		if err != nil {
			return fmt.Errorf("completed order count: %w", err)
		}
		rating.CompletedOrders = completed

		normalized := normalizeOverall(review.Ratings.Overall)
		weight := s.reviewWeight(completed)
		target := rating.Score + weight*(normalized-rating.Score)
		s.commitDelta(rating, target-rating.Score)

		rating.Metrics.ReviewsCounted++
		rating.Metrics.AverageOverall = runningAverage(rating.Metrics.AverageOverall, float64(review.Ratings.Overall), rating.Metrics.ReviewsCounted)
		return nil
	}, models.RatingSourceReview)
}

// ApplyPenalty folds one penalty into the score at the configured penalty
// weight. The delta is already negative and bounded at the edge.
func (s *RatingService) ApplyPenalty(ctx context.Context, penalty *models.PlayerOrderPenalty) error {
	return s.withLock(ctx, penalty.PlayerID, penalty.Role, func(rating *models.PlayerOrderRating) error {
		s.commitDelta(rating, s.cfg.PenaltyWeight*penalty.Delta)
		rating.Metrics.PenaltiesCounted++
		return nil
	}, models.RatingSourcePenalty)
}

// EvaluateDecay applies inactivity decay: after the grace period the score
// drains linearly per week of inactivity, never below the floor.
func (s *RatingService) EvaluateDecay(ctx context.Context, playerID string, role models.RatingRole, now time.Time) error {
	return s.withLock(ctx, playerID, role, func(rating *models.PlayerOrderRating) error {
		decay := s.decayAmount(rating.Score, now.Sub(rating.UpdatedAt))
		if decay == 0 {
			return nil
		}
		s.commitDelta(rating, -decay)
		rating.DecayApplied += decay
		if decay >= s.cfg.DecayWarnPerEval {
			rating.Warnings = appendUnique(rating.Warnings, "score is decaying from inactivity")
		}
		return nil
	}, models.RatingSourceDecay)
}

// ReplayResult reports a from-scratch recomputation.
type ReplayResult struct {
	PlayerID string
	Role     models.RatingRole
	Stored   float64
	Replayed float64
	Drift    float64
}

// Replay recomputes a score from the full review and penalty logs. With
// persist false it only reports the drift; with persist true the replayed
// value replaces the stored aggregate.
func (s *RatingService) Replay(ctx context.Context, playerID string, role models.RatingRole, persist bool) (*ReplayResult, error) {
	now := time.Now().UTC()
	reviews, err := s.reviews.ListForReplay(ctx, playerID, role)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	penalties, err := s.penalties.ListForReplay(ctx, playerID, role, now)
	if err != nil {
		return nil, fmt.Errorf("load penalties: %w", err)
	}
	completed, err := s.ratings.CompletedOrderCount(ctx, playerID, role)
	if err != nil {
		return nil, fmt.Errorf("completed order count: %w", err)
	}

	rebuilt := s.blank(playerID, role)
	rebuilt.CompletedOrders = completed
	// Reviews fold in creation order at the weight the player holds today.
	weight := s.reviewWeight(completed)
	var overallSum float64
	for i := range reviews {
		normalized := normalizeOverall(reviews[i].Ratings.Overall)
		rebuilt.Score = clampScore(rebuilt.Score + weight*(normalized-rebuilt.Score))
		overallSum += float64(reviews[i].Ratings.Overall)
	}
	rebuilt.Metrics.ReviewsCounted = len(reviews)
	if len(reviews) > 0 {
		rebuilt.Metrics.AverageOverall = round2(overallSum / float64(len(reviews)))
	}
	for i := range penalties {
		rebuilt.Score = clampScore(rebuilt.Score + s.cfg.PenaltyWeight*penalties[i].Delta)
	}
	rebuilt.Metrics.PenaltiesCounted = len(penalties)
	rebuilt.Score = round2(rebuilt.Score)

	stored, err := s.Get(ctx, playerID, role)
	if err != nil {
		return nil, err
	}
	result := &ReplayResult{
		PlayerID: playerID,
		Role:     role,
		Stored:   stored.Score,
		Replayed: rebuilt.Score,
		Drift:    round2(rebuilt.Score - stored.Score),
	}
	if !persist || result.Drift == 0 {
		return result, nil
	}

	err = s.withLock(ctx, playerID, role, func(rating *models.PlayerOrderRating) error {
		rating.CompletedOrders = rebuilt.CompletedOrders
		rating.Metrics = rebuilt.Metrics
		s.commitDelta(rating, rebuilt.Score-rating.Score)
		return nil
	}, models.RatingSourceRecalc)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withLock loads (or seeds) the aggregate under the player+role mutex, runs
// the mutation, persists, appends the event and publishes the change.
func (s *RatingService) withLock(ctx context.Context, playerID string, role models.RatingRole, mutate func(*models.PlayerOrderRating) error, source models.RatingEventSource) error {
	key := string(role) + ":" + playerID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	rating, err := s.ratings.Get(ctx, playerID, role)
	if err != nil {
		if !repository.IsNotFound(err) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
		}
		rating = s.blank(playerID, role)
	}

	before := rating.Score
	beforeCategory := rating.Category(s.Thresholds())
	if err := mutate(rating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rating")
	}
	delta := round2(rating.Score - before)
	rating.Trend = s.trend(ctx, playerID, role, delta)
	if newCategory := rating.Category(s.Thresholds()); newCategory.Rank() < beforeCategory.Rank() {
		rating.Warnings = appendUnique(rating.Warnings,
			fmt.Sprintf("rating tier dropped from %s to %s", beforeCategory, newCategory))
	}

	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating")
	}
	if delta != 0 {
		event := &models.RatingEvent{
			PlayerID:   playerID,
			Role:       role,
			Source:     source,
			Delta:      delta,
			ScoreAfter: rating.Score,
		}
		if err := s.ratings.AppendEvent(ctx, event); err != nil {
			s.logger.Error("failed to append rating event", zap.String("playerId", playerID), zap.Error(err))
		}
		s.metrics.RatingUpdated(string(source))
		s.publish(ctx, playerID, role, before, beforeCategory, rating, source)
	}
	return nil
}

func (s *RatingService) publish(ctx context.Context, playerID string, role models.RatingRole, before float64, beforeCategory models.RatingCategory, rating *models.PlayerOrderRating, source models.RatingEventSource) {
	if s.bus == nil {
		return
	}
	event := models.RatingUpdatedEvent{
		PlayerID:         playerID,
		Role:             role,
		PreviousScore:    before,
		NewScore:         rating.Score,
		PreviousCategory: beforeCategory,
		NewCategory:      rating.Category(s.Thresholds()),
		Source:           source,
		OccurredAt:       time.Now().UTC(),
	}
	if err := s.bus.PublishRatingUpdated(ctx, event); err != nil {
		s.logger.Warn("failed to publish rating update", zap.String("playerId", playerID), zap.Error(err))
	}
}

// commitDelta moves the score by delta, clamped into [0, 100].
func (s *RatingService) commitDelta(rating *models.PlayerOrderRating, delta float64) {
	rating.Score = round2(clampScore(rating.Score + delta))
}

// reviewWeight dampens reviews as completed orders accumulate:
// baseWeight / (1 + completed/halfOrders).
func (s *RatingService) reviewWeight(completedOrders int) float64 {
	return s.cfg.ReviewBaseWeight / (1 + float64(completedOrders)/s.cfg.WeightHalfOrders)
}

// decayAmount computes the inactivity drain for the elapsed idle time. The
// grace period is free; beyond it the score loses DecayPerWeek per full week
// down to the floor.
func (s *RatingService) decayAmount(score float64, idle time.Duration) float64 {
	if idle <= s.cfg.DecayGrace {
		return 0
	}
	weeks := math.Floor(float64(idle-s.cfg.DecayGrace) / float64(7*24*time.Hour))
	if weeks < 1 {
		return 0
	}
	decay := weeks * s.cfg.DecayPerWeek
	if score-decay < s.cfg.MinScore {
		decay = score - s.cfg.MinScore
	}
	if decay < 0 {
		return 0
	}
	return round2(decay)
}

// trend averages the deltas of the trailing event window, including the
// change being committed.
func (s *RatingService) trend(ctx context.Context, playerID string, role models.RatingRole, pendingDelta float64) float64 {
	events, err := s.ratings.RecentEvents(ctx, playerID, role, s.cfg.TrendWindow-1)
	if err != nil {
		s.logger.Warn("failed to load trend window", zap.String("playerId", playerID), zap.Error(err))
		return pendingDelta
	}
	sum := pendingDelta
	for _, e := range events {
		sum += e.Delta
	}
	return round2(sum / float64(len(events)+1))
}

func (s *RatingService) blank(playerID string, role models.RatingRole) *models.PlayerOrderRating {
	return &models.PlayerOrderRating{
		PlayerID: playerID,
		Role:     role,
		Score:    initialScore,
	}
}

// normalizeOverall maps the 1..5 overall mark onto the 0..100 score scale.
func normalizeOverall(overall int) float64 {
	if overall < 1 {
		overall = 1
	}
	if overall > 5 {
		overall = 5
	}
	return float64(overall-1) / 4 * 100
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func appendUnique(list models.RatingWarnings, warning string) models.RatingWarnings {
	for _, w := range list {
		if w == warning {
			return list
		}
	}
	return append(list, warning)
}

func runningAverage(current float64, next float64, count int) float64 {
	if count <= 0 {
		return next
	}
	return round2(current + (next-current)/float64(count))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
