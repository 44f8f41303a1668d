package service

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
)

type ratingStoreStub struct {
	ratings   map[string]*models.PlayerOrderRating
	events    []models.RatingEvent
	completed map[string]int
}

func newRatingStoreStub() *ratingStoreStub {
	return &ratingStoreStub{
		ratings:   map[string]*models.PlayerOrderRating{},
		completed: map[string]int{},
	}
}

func ratingKey(playerID string, role models.RatingRole) string {
	return string(role) + ":" + playerID
}

func (r *ratingStoreStub) Get(ctx context.Context, playerID string, role models.RatingRole) (*models.PlayerOrderRating, error) {
	rating, ok := r.ratings[ratingKey(playerID, role)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *rating
	return &clone, nil
}

func (r *ratingStoreStub) Upsert(ctx context.Context, rating *models.PlayerOrderRating) error {
	clone := *rating
	r.ratings[ratingKey(rating.PlayerID, rating.Role)] = &clone
	return nil
}

func (r *ratingStoreStub) AppendEvent(ctx context.Context, event *models.RatingEvent) error {
	r.events = append(r.events, *event)
	return nil
}

func (r *ratingStoreStub) RecentEvents(ctx context.Context, playerID string, role models.RatingRole, limit int) ([]models.RatingEvent, error) {
	var out []models.RatingEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].PlayerID == playerID && r.events[i].Role == role {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *ratingStoreStub) CompletedOrderCount(ctx context.Context, playerID string, role models.RatingRole) (int, error) {
	return r.completed[ratingKey(playerID, role)], nil
}

type reviewReplayStub struct {
	reviews []models.PlayerOrderReview
}

func (r *reviewReplayStub) ListForReplay(ctx context.Context, targetID string, role models.RatingRole) ([]models.PlayerOrderReview, error) {
	var out []models.PlayerOrderReview
	for _, rv := range r.reviews {
		if rv.TargetID == targetID && rv.Role == role && rv.Status == models.ReviewStatusPublished {
			out = append(out, rv)
		}
	}
	return out, nil
}

type penaltyReplayStub struct {
	penalties []models.PlayerOrderPenalty
}

func (p *penaltyReplayStub) ListForReplay(ctx context.Context, playerID string, role models.RatingRole, now time.Time) ([]models.PlayerOrderPenalty, error) {
	var out []models.PlayerOrderPenalty
	for i := range p.penalties {
		if p.penalties[i].PlayerID == playerID && p.penalties[i].Role == role && p.penalties[i].CountsAt(now) {
			out = append(out, p.penalties[i])
		}
	}
	return out, nil
}

type ratingBusStub struct {
	events []models.RatingUpdatedEvent
}

func (b *ratingBusStub) PublishRatingUpdated(ctx context.Context, event models.RatingUpdatedEvent) error {
	b.events = append(b.events, event)
	return nil
}

func testReputationConfig() config.ReputationConfig {
	return config.ReputationConfig{
		ReviewBaseWeight: 0.3,
		WeightHalfOrders: 20,
		PenaltyWeight:    0.4,
		DecayGrace:       720 * time.Hour,
		DecayPerWeek:     0.5,
		DecayWarnPerEval: 5.0,
		MinScore:         10,
		TrendWindow:      5,
		BronzeUpper:      40,
		SilverUpper:      65,
		GoldUpper:        85,
	}
}

func newRatingFixture() (*RatingService, *ratingStoreStub, *reviewReplayStub, *penaltyReplayStub, *ratingBusStub) {
	store := newRatingStoreStub()
	reviews := &reviewReplayStub{}
	penalties := &penaltyReplayStub{}
	bus := &ratingBusStub{}
	svc := NewRatingService(store, reviews, penalties, bus, testReputationConfig(), nil, nil)
	return svc, store, reviews, penalties, bus
}

func seedRating(store *ratingStoreStub, playerID string, role models.RatingRole, score float64) {
	store.ratings[ratingKey(playerID, role)] = &models.PlayerOrderRating{
		PlayerID:  playerID,
		Role:      role,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
}

func TestApplyPenaltyWeightedDelta(t *testing.T) {
	svc, store, _, _, bus := newRatingFixture()
	seedRating(store, "player-1", models.RoleExecutor, 82)

	err := svc.ApplyPenalty(context.Background(), &models.PlayerOrderPenalty{
		PlayerID: "player-1",
		Role:     models.RoleExecutor,
		Delta:    -30,
		Status:   models.PenaltyActive,
	})
	require.NoError(t, err)

	rating, err := svc.Get(context.Background(), "player-1", models.RoleExecutor)
	require.NoError(t, err)
	// 82 + 0.4 * (-30) = 70
	assert.InDelta(t, 70.0, rating.Score, 1e-9)
	assert.Equal(t, 1, rating.Metrics.PenaltiesCounted)

	require.Len(t, bus.events, 1)
	assert.InDelta(t, 82.0, bus.events[0].PreviousScore, 1e-9)
	assert.InDelta(t, 70.0, bus.events[0].NewScore, 1e-9)
	assert.Equal(t, models.RatingSourcePenalty, bus.events[0].Source)
}

func TestApplyPenaltyTierDropAddsWarning(t *testing.T) {
	svc, store, _, _, bus := newRatingFixture()
	seedRating(store, "player-1", models.RoleExecutor, 66)

	err := svc.ApplyPenalty(context.Background(), &models.PlayerOrderPenalty{
		PlayerID: "player-1",
		Role:     models.RoleExecutor,
		Delta:    -10,
		Status:   models.PenaltyActive,
	})
	require.NoError(t, err)

	// 66 + 0.4 * (-10) = 62: gold down to silver.
	rating, err := svc.Get(context.Background(), "player-1", models.RoleExecutor)
	require.NoError(t, err)
	assert.Contains(t, rating.Warnings, "rating tier dropped from gold to silver")

	require.Len(t, bus.events, 1)
	assert.Equal(t, models.CategoryGold, bus.events[0].PreviousCategory)
	assert.Equal(t, models.CategorySilver, bus.events[0].NewCategory)

	// Climbing back up does not warn.
	err = svc.ApplyPenalty(context.Background(), &models.PlayerOrderPenalty{
		PlayerID: "player-1",
		Role:     models.RoleExecutor,
		Delta:    10,
		Status:   models.PenaltyActive,
	})
	require.NoError(t, err)
	rating, err = svc.Get(context.Background(), "player-1", models.RoleExecutor)
	require.NoError(t, err)
	assert.Len(t, rating.Warnings, 1)
}

func TestApplyReviewWeightShrinksWithExperience(t *testing.T) {
	svc, store, _, _, _ := newRatingFixture()
	review := &models.PlayerOrderReview{
		TargetID: "rookie",
		Role:     models.RoleExecutor,
		Ratings:  models.ReviewRatings{Overall: 5},
		Status:   models.ReviewStatusPublished,
	}

	seedRating(store, "rookie", models.RoleExecutor, 50)
	seedRating(store, "veteran", models.RoleExecutor, 50)
	store.completed[ratingKey("veteran", models.RoleExecutor)] = 100

	require.NoError(t, svc.ApplyReview(context.Background(), review))

	veteranReview := *review
	veteranReview.TargetID = "veteran"
	require.NoError(t, svc.ApplyReview(context.Background(), &veteranReview))

	rookie, err := svc.Get(context.Background(), "rookie", models.RoleExecutor)
	require.NoError(t, err)
	veteran, err := svc.Get(context.Background(), "veteran", models.RoleExecutor)
	require.NoError(t, err)

	// rookie: 50 + 0.3*(100-50) = 65; veteran weight 0.3/(1+5) = 0.05
	assert.InDelta(t, 65.0, rookie.Score, 1e-9)
	assert.InDelta(t, 52.5, veteran.Score, 1e-9)
	assert.Greater(t, rookie.Score, veteran.Score)
}

func TestScoreStaysInBoundsUnderRandomHistory(t *testing.T) {
	svc, store, _, _, _ := newRatingFixture()
	seedRating(store, "player-x", models.RoleClient, 50)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 {
			err := svc.ApplyReview(context.Background(), &models.PlayerOrderReview{
				TargetID: "player-x",
				Role:     models.RoleClient,
				Ratings:  models.ReviewRatings{Overall: 1 + rng.Intn(5)},
				Status:   models.ReviewStatusPublished,
			})
			require.NoError(t, err)
		} else {
			err := svc.ApplyPenalty(context.Background(), &models.PlayerOrderPenalty{
				PlayerID: "player-x",
				Role:     models.RoleClient,
				Delta:    -float64(1 + rng.Intn(100)),
				Status:   models.PenaltyActive,
			})
			require.NoError(t, err)
		}
		rating, err := svc.Get(context.Background(), "player-x", models.RoleClient)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rating.Score, 0.0)
		require.LessOrEqual(t, rating.Score, 100.0)
	}
}

func TestEvaluateDecayRespectsGraceAndFloor(t *testing.T) {
	svc, store, _, _, _ := newRatingFixture()
	now := time.Now().UTC()

	// Inside grace: untouched.
	seedRating(store, "fresh", models.RoleExecutor, 60)
	store.ratings[ratingKey("fresh", models.RoleExecutor)].UpdatedAt = now.Add(-700 * time.Hour)
	require.NoError(t, svc.EvaluateDecay(context.Background(), "fresh", models.RoleExecutor, now))
	fresh, _ := svc.Get(context.Background(), "fresh", models.RoleExecutor)
	assert.InDelta(t, 60.0, fresh.Score, 1e-9)

	// Four weeks past grace: 4 * 0.5 drained.
	seedRating(store, "idle", models.RoleExecutor, 60)
	store.ratings[ratingKey("idle", models.RoleExecutor)].UpdatedAt = now.Add(-720*time.Hour - 4*7*24*time.Hour)
	require.NoError(t, svc.EvaluateDecay(context.Background(), "idle", models.RoleExecutor, now))
	idle, _ := svc.Get(context.Background(), "idle", models.RoleExecutor)
	assert.InDelta(t, 58.0, idle.Score, 1e-9)

	// Decay never crosses the floor.
	seedRating(store, "dormant", models.RoleExecutor, 10.2)
	store.ratings[ratingKey("dormant", models.RoleExecutor)].UpdatedAt = now.Add(-720*time.Hour - 52*7*24*time.Hour)
	require.NoError(t, svc.EvaluateDecay(context.Background(), "dormant", models.RoleExecutor, now))
	dormant, _ := svc.Get(context.Background(), "dormant", models.RoleExecutor)
	assert.InDelta(t, 10.0, dormant.Score, 1e-9)
}

func TestGetReturnsNeutralDefaultForUnknownPlayer(t *testing.T) {
	svc, _, _, _, _ := newRatingFixture()
	rating, err := svc.Get(context.Background(), "nobody", models.RoleClient)
	require.NoError(t, err)
	assert.InDelta(t, initialScore, rating.Score, 1e-9)
	assert.Equal(t, models.CategorySilver, rating.Category(svc.Thresholds()))
}

func TestReplayReportsAndRepairsDrift(t *testing.T) {
	svc, store, reviews, penalties, _ := newRatingFixture()
	seedRating(store, "player-1", models.RoleExecutor, 90) // drifted aggregate

	reviews.reviews = []models.PlayerOrderReview{
		{TargetID: "player-1", Role: models.RoleExecutor, Ratings: models.ReviewRatings{Overall: 4}, Status: models.ReviewStatusPublished},
		{TargetID: "player-1", Role: models.RoleExecutor, Ratings: models.ReviewRatings{Overall: 5}, Status: models.ReviewStatusPublished},
	}
	penalties.penalties = []models.PlayerOrderPenalty{
		{PlayerID: "player-1", Role: models.RoleExecutor, Delta: -10, Status: models.PenaltyActive},
	}

	dry, err := svc.Replay(context.Background(), "player-1", models.RoleExecutor, false)
	require.NoError(t, err)
	// 50 -> +0.3*(75-50)=57.5 -> +0.3*(100-57.5)=70.25 -> -4 = 66.25
	assert.InDelta(t, 66.25, dry.Replayed, 1e-9)
	assert.InDelta(t, 90.0, dry.Stored, 1e-9)
	assert.InDelta(t, -23.75, dry.Drift, 1e-9)

	// Dry run must not have touched the aggregate.
	stored, _ := svc.Get(context.Background(), "player-1", models.RoleExecutor)
	assert.InDelta(t, 90.0, stored.Score, 1e-9)

	persisted, err := svc.Replay(context.Background(), "player-1", models.RoleExecutor, true)
	require.NoError(t, err)
	assert.InDelta(t, 66.25, persisted.Replayed, 1e-9)

	repaired, _ := svc.Get(context.Background(), "player-1", models.RoleExecutor)
	assert.InDelta(t, 66.25, repaired.Score, 1e-9)
	assert.Equal(t, 2, repaired.Metrics.ReviewsCounted)
	assert.Equal(t, 1, repaired.Metrics.PenaltiesCounted)
}

func TestTrendAveragesRecentEvents(t *testing.T) {
	svc, store, _, _, _ := newRatingFixture()
	seedRating(store, "player-1", models.RoleClient, 50)

	for _, overall := range []int{5, 5, 5} {
		require.NoError(t, svc.ApplyReview(context.Background(), &models.PlayerOrderReview{
			TargetID: "player-1",
			Role:     models.RoleClient,
			Ratings:  models.ReviewRatings{Overall: overall},
			Status:   models.ReviewStatusPublished,
		}))
	}
	rating, err := svc.Get(context.Background(), "player-1", models.RoleClient)
	require.NoError(t, err)
	assert.Greater(t, rating.Trend, 0.0)
}
