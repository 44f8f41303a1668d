package clients

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/models"
)

// EventBus publishes core events for downstream consumers (news feed,
// notifications). The core never renders or delivers notifications itself.
type EventBus interface {
	PublishRatingUpdated(ctx context.Context, event models.RatingUpdatedEvent) error
	PublishOrderEvent(ctx context.Context, event models.OrderLifecycleEvent) error
}

const (
	channelRatingUpdated  = "orders.rating_updated"
	channelOrderLifecycle = "orders.lifecycle"
)

// RedisBus publishes events over Redis pub/sub channels.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus constructs a Redis-backed event bus.
func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, logger: logger}
}

// PublishRatingUpdated broadcasts a score change.
func (b *RedisBus) PublishRatingUpdated(ctx context.Context, event models.RatingUpdatedEvent) error {
	return b.publish(ctx, channelRatingUpdated, event)
}

// PublishOrderEvent broadcasts a lifecycle milestone.
func (b *RedisBus) PublishOrderEvent(ctx context.Context, event models.OrderLifecycleEvent) error {
	return b.publish(ctx, channelOrderLifecycle, event)
}

func (b *RedisBus) publish(ctx context.Context, channel string, payload interface{}) error {
	if b.client == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
