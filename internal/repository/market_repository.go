package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/pricing"
)

const (
	marketIndexKey    = "market:index"
	medianRewardKey   = "market:median:"
	medianCacheExpiry = 10 * time.Minute

	defaultMarketIndex = 10.0
)

// MarketRepository serves the market signals the pricing estimator consumes.
// The economy service maintains the market index in Redis; template medians
// are computed from published orders and cached.
type MarketRepository struct {
	db  *sqlx.DB
	rdb *redis.Client
}

// NewMarketRepository creates a new market repository.
func NewMarketRepository(db *sqlx.DB, rdb *redis.Client) *MarketRepository {
	return &MarketRepository{db: db, rdb: rdb}
}

// MarketIndex returns the current index, falling back to the neutral default
// when the economy service has not published one.
func (r *MarketRepository) MarketIndex(ctx context.Context) (float64, error) {
	raw, err := r.rdb.Get(ctx, marketIndexKey).Result()
	if errors.Is(err, redis.Nil) {
		return defaultMarketIndex, nil
	}
	if err != nil {
		return 0, fmt.Errorf("market index: %w", err)
	}
	index, err := strconv.ParseFloat(raw, 64)
	if err != nil || index <= 0 {
		return defaultMarketIndex, nil
	}
	return index, nil
}

// MedianReward returns the median base reward of published orders sharing the
// template, zero when the template has no history yet. Results are cached.
func (r *MarketRepository) MedianReward(ctx context.Context, template models.TemplateCode) (float64, error) {
	cacheKey := medianRewardKey + string(template)
	if raw, err := r.rdb.Get(ctx, cacheKey).Result(); err == nil {
		if median, perr := strconv.ParseFloat(raw, 64); perr == nil {
			return median, nil
		}
	}

	var median *float64
	const query = `SELECT percentile_cont(0.5) WITHIN GROUP (ORDER BY (budget->>'baseReward')::float)
        FROM published_orders WHERE brief->>'templateCode' = $1`
	if err := r.db.GetContext(ctx, &median, query, template); err != nil {
		return 0, fmt.Errorf("median reward: %w", err)
	}
	if median == nil {
		return 0, nil
	}

	if err := r.rdb.Set(ctx, cacheKey, strconv.FormatFloat(*median, 'f', -1, 64), medianCacheExpiry).Err(); err != nil {
		// cache write failures do not affect the answer
		return *median, nil
	}
	return *median, nil
}

// Signals bundles both market inputs for an estimate.
func (r *MarketRepository) Signals(ctx context.Context, template models.TemplateCode) (pricing.MarketSignals, error) {
	index, err := r.MarketIndex(ctx)
	if err != nil {
		return pricing.MarketSignals{}, err
	}
	median, err := r.MedianReward(ctx, template)
	if err != nil {
		return pricing.MarketSignals{}, err
	}
	return pricing.MarketSignals{Index: index, MedianReward: median}, nil
}
