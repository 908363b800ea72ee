package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedTracker deduplicates webhook event deliveries.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) error
}

// RedisDedupe tracks processed webhook events in Redis. Entries expire after
// the TTL; past that point the payment-status CAS is the remaining guard
// against replays.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if client == nil {
		panic("payments: redis client required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

func dedupeKey(provider, eventID string) string {
	return fmt.Sprintf("carebook:webhook:%s:%s", provider, eventID)
}

func (d *RedisDedupe) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("payments: dedupe lookup: %w", err)
	}
	return n > 0, nil
}

func (d *RedisDedupe) MarkProcessed(ctx context.Context, provider, eventID string) error {
	if err := d.client.Set(ctx, dedupeKey(provider, eventID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("payments: dedupe mark: %w", err)
	}
	return nil
}
