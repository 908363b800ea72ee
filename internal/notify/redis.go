package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher pushes status events onto a Redis pub/sub channel. Interested
// frontends (or a websocket gateway) subscribe to the channel; the state
// machine stays ignorant of who is listening.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if client == nil {
		panic("notify: redis client required")
	}
	if channel == "" {
		channel = "carebook:appointment-status"
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) PublishStatus(ctx context.Context, evt StatusEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: encode status event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("notify: publish status event: %w", err)
	}
	return nil
}
