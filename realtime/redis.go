package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "fencing:events"

// RedisBridge carries events between service instances over Redis pub/sub.
// Every instance, the publishing one included, receives events back through
// its subscription and hands them to the local hub.
type RedisBridge struct {
	rdb     *redis.Client
	local   *Hub
	channel string
	logger  *zap.Logger
}

func NewRedisBridge(rdb *redis.Client, local *Hub, channel string, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{rdb: rdb, local: local, channel: channel, logger: logger}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// Publish sends the event to Redis. When Redis is unavailable the event is
// delivered locally so clients on this instance still hear about it.
func (b *RedisBridge) Publish(ctx context.Context, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("failed to marshal event for redis", zap.String("topic", ev.Topic), zap.Error(err))
		b.local.Publish(ctx, ev)
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.logger.Warn("redis publish failed, delivering locally", zap.String("topic", ev.Topic), zap.Error(err))
		b.local.Publish(ctx, ev)
	}
}

// Run relays events from Redis into the local hub until ctx ends. ready, when
// non-nil, is closed once the subscription is confirmed.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			b.local.Publish(ctx, ev)
		}
	}
}
